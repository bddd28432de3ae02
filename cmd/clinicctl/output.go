// output.go — вывод результатов: таблица (tabwriter), JSON, YAML.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bigkaa/clinic-console/internal/console"
	"github.com/bigkaa/clinic-console/internal/i18n"
)

// accountRow — учётная запись в выводе CLI.
type accountRow struct {
	ID       string   `json:"id" yaml:"id"`
	Email    string   `json:"email" yaml:"email"`
	FullName string   `json:"full_name" yaml:"full_name"`
	Phone    string   `json:"phone" yaml:"phone"`
	Roles    []string `json:"roles" yaml:"roles"`
	IsActive bool     `json:"is_active" yaml:"is_active"`
}

// pageOutput — страница в выводе CLI (совпадает с ответом BFF).
type pageOutput struct {
	Items       []accountRow `json:"items" yaml:"items"`
	Total       int          `json:"total" yaml:"total"`
	Page        int          `json:"page" yaml:"page"`
	PageSize    int          `json:"page_size" yaml:"page_size"`
	HasNextPage bool         `json:"has_next_page" yaml:"has_next_page"`
}

// mutationOutput — результат изменения.
type mutationOutput struct {
	Message string `json:"message" yaml:"message"`
	Updated int    `json:"updated" yaml:"updated"`
	Warning string `json:"warning,omitempty" yaml:"warning,omitempty"`
}

// encode выводит v в формате --output; для table вызывается table.
func (o *options) encode(w io.Writer, v any, table func(io.Writer) error) error {
	switch o.output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return table(w)
	}
}

// printPage выводит текущую страницу представления.
func (o *options) printPage(w io.Writer, s console.State) error {
	out := pageOutput{
		Items:       make([]accountRow, len(s.Items)),
		Total:       s.Total,
		Page:        s.Query.Page,
		PageSize:    s.Query.PageSize,
		HasNextPage: s.HasNextPage,
	}
	for i, a := range s.Items {
		roles := a.Roles
		if roles == nil {
			roles = []string{}
		}
		out.Items[i] = accountRow{
			ID:       a.ID,
			Email:    a.Email,
			FullName: a.FullName,
			Phone:    a.Phone,
			Roles:    roles,
			IsActive: a.IsActive,
		}
	}

	return o.encode(w, out, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join([]string{
			o.t(i18n.MsgTableID),
			o.t(i18n.MsgTableName),
			o.t(i18n.MsgTableEmail),
			o.t(i18n.MsgTablePhone),
			o.t(i18n.MsgTableRoles),
			o.t(i18n.MsgTableStatus),
		}, "\t"))
		for _, r := range out.Items {
			status := o.t(i18n.MsgStatusInactive)
			if r.IsActive {
				status = o.t(i18n.MsgStatusActive)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.FullName, r.Email, r.Phone, strings.Join(r.Roles, ","), status)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		summary := i18n.MsgTableSummary
		if out.HasNextPage {
			summary = i18n.MsgTableSummaryNext
		}
		_, err := fmt.Fprintln(w, o.tf(summary, out.Total, out.Page))
		return err
	})
}

// printMutation выводит результат изменения или возвращает ошибку представления.
func (o *options) printMutation(cmd *cobra.Command, trace *messageTrace, updated int) error {
	success, warning, err := trace.result()
	if err != nil {
		return err
	}
	if warning != "" && o.output == outputTable {
		fmt.Fprintln(cmd.ErrOrStderr(), warning)
	}
	out := mutationOutput{Message: success, Updated: updated, Warning: warning}
	return o.encode(cmd.OutOrStdout(), out, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, success)
		return err
	})
}
