// accounts.go — команды accounts: list, set-status, bulk-status, update.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bigkaa/clinic-console/internal/console"
	"github.com/bigkaa/clinic-console/internal/domain/model"
	"github.com/bigkaa/clinic-console/internal/domain/views"
	"github.com/bigkaa/clinic-console/internal/i18n"
	"github.com/bigkaa/clinic-console/internal/service"
)

// listFlags — параметры запроса списка.
type listFlags struct {
	view     string
	role     string
	keyword  string
	page     int
	pageSize int
	desc     bool
}

func (f *listFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.view, "view", views.NameAccounts, "представление: "+strings.Join(views.Names(), ", "))
	fl.StringVar(&f.role, "role", "", "фильтр по роли")
	fl.StringVar(&f.keyword, "keyword", "", "поиск по имени, email или телефону")
	fl.IntVar(&f.page, "page", 1, "номер страницы")
	fl.IntVar(&f.pageSize, "page-size", cliPageSizeDefault, "размер страницы")
	fl.BoolVar(&f.desc, "desc", false, "сортировка по имени по убыванию")
}

// resolve проверяет флаги и возвращает представление и запрос.
func (f *listFlags) resolve(o *options) (views.View, model.Query, error) {
	view, ok := views.Lookup(f.view)
	if !ok {
		return views.View{}, model.Query{}, fmt.Errorf("%s", o.tf(i18n.MsgInvalidView, f.view))
	}
	if f.page < 1 {
		return views.View{}, model.Query{}, fmt.Errorf("%s", o.tf(i18n.MsgInvalidParam, "page"))
	}
	if f.pageSize < 1 || f.pageSize > cliPageSizeMax {
		return views.View{}, model.Query{}, fmt.Errorf("%s", o.tf(i18n.MsgInvalidParam, "page-size"))
	}

	q := model.Query{
		Role:     f.role,
		Keyword:  f.keyword,
		Page:     f.page,
		PageSize: f.pageSize,
		Sort:     model.SortAsc,
	}
	if f.desc {
		q.Sort = model.SortDesc
	}
	return view, q, nil
}

func newAccountsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Учётные записи клиники",
	}
	cmd.AddCommand(
		newAccountsListCmd(o),
		newSetStatusCmd(o),
		newBulkStatusCmd(o),
		newUpdateCmd(o),
	)
	return cmd
}

func newAccountsListCmd(o *options) *cobra.Command {
	flags := &listFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Страница учётных записей выбранного представления",
		Example: `  clinicctl accounts list --keyword "Nguyễn" --page-size 20
  clinicctl accounts list --view patients --desc -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, q, err := flags.resolve(o)
			if err != nil {
				return err
			}
			v, _, err := o.newView(view, q)
			if err != nil {
				return err
			}
			defer v.Close()

			ctx, cancel := o.context(cmd)
			defer cancel()

			if err := v.FetchAccounts(ctx); err != nil {
				return stateError(v.State(), err)
			}
			return o.printPage(cmd.OutOrStdout(), v.State())
		},
	}
	flags.register(cmd)
	return cmd
}

func newSetStatusCmd(o *options) *cobra.Command {
	var active bool
	cmd := &cobra.Command{
		Use:     "set-status ID",
		Short:   "Активировать или деактивировать учётную запись",
		Example: "  clinicctl accounts set-status 42 --active=false",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, trace, err := o.newView(mustView(views.NameAccounts), model.Query{PageSize: cliPageSizeDefault})
			if err != nil {
				return err
			}
			defer v.Close()

			ctx, cancel := o.context(cmd)
			defer cancel()

			v.UpdateStatus(ctx, args[0], active)
			return o.printMutation(cmd, trace, 1)
		},
	}
	cmd.Flags().BoolVar(&active, "active", false, "новый статус (true — активна)")
	_ = cmd.MarkFlagRequired("active")
	return cmd
}

func newBulkStatusCmd(o *options) *cobra.Command {
	var active bool
	cmd := &cobra.Command{
		Use:     "bulk-status --active=BOOL ID...",
		Short:   "Сменить статус нескольких учётных записей одним запросом",
		Example: "  clinicctl accounts bulk-status --active 12 15 21",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, trace, err := o.newView(mustView(views.NameAccounts), model.Query{PageSize: cliPageSizeDefault})
			if err != nil {
				return err
			}
			defer v.Close()

			ctx, cancel := o.context(cmd)
			defer cancel()

			v.UpdateStatusBulk(ctx, args, active)
			return o.printMutation(cmd, trace, len(service.UniqueIDs(args)))
		},
	}
	cmd.Flags().BoolVar(&active, "active", false, "новый статус (true — активна)")
	_ = cmd.MarkFlagRequired("active")
	return cmd
}

func newUpdateCmd(o *options) *cobra.Command {
	var p model.Profile
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Заменить email, имя и телефон учётной записи",
		Long: `Профиль заменяется целиком: незаданный --phone очищает телефон.
Роли после создания учётной записи не меняются.`,
		Example: `  clinicctl accounts update 42 --email an.nguyen@clinic.vn --full-name "Nguyễn Văn An" --phone 0901234567`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, trace, err := o.newView(mustView(views.NameAccounts), model.Query{PageSize: cliPageSizeDefault})
			if err != nil {
				return err
			}
			defer v.Close()

			ctx, cancel := o.context(cmd)
			defer cancel()

			_ = v.UpdateAccount(ctx, args[0], p)
			return o.printMutation(cmd, trace, 1)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&p.Email, "email", "", "email")
	fl.StringVar(&p.FullName, "full-name", "", "полное имя")
	fl.StringVar(&p.Phone, "phone", "", "телефон")
	return cmd
}

// mustView возвращает зарегистрированное представление.
func mustView(name string) views.View {
	v, ok := views.Lookup(name)
	if !ok {
		panic("представление не зарегистрировано: " + name)
	}
	return v
}

// stateError возвращает текст сообщения представления, если оно есть.
func stateError(s console.State, err error) error {
	if s.Message != nil && s.Message.Kind == console.MessageError {
		return fmt.Errorf("%s", s.Message.Text)
	}
	return err
}
