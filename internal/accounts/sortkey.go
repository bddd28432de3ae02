// sortkey.go — нормализатор сортировки по имени.
// Ключ не зависит от поля, в котором пришло имя, и от диакритики.
// Основной ключ — личное имя (последнее слово: во вьетнамских именах фамилия идёт первой),
// вторичный — полное нормализованное имя.
package accounts

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/bigkaa/clinic-console/internal/domain/model"
)

// Key — составной ключ сортировки, хранится в model.Account.SortKey.
type Key = model.SortKey

// dStroke — «đ/Đ» не раскладывается при NFD, заменяем явно.
var dStroke = strings.NewReplacer("đ", "d", "Đ", "D")

// NormalizeName приводит имя к виду для сравнения: NFD, удаление combining marks,
// đ→d, схлопывание пробелов, нижний регистр.
func NormalizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	stripped = dStroke.Replace(stripped)
	return strings.ToLower(strings.Join(strings.Fields(stripped), " "))
}

// KeyOf строит ключ сортировки из отображаемого имени.
// Пустое имя даёт пустой ключ (сортируется первым по возрастанию).
func KeyOf(displayName string) Key {
	full := NormalizeName(displayName)
	if full == "" {
		return Key{}
	}
	given := full
	if i := strings.LastIndexByte(full, ' '); i >= 0 {
		given = full[i+1:]
	}
	return Key{Given: given, Full: full}
}

// newCollator создаёт collator для вьетнамского языка без учёта регистра.
// collate.Collator не потокобезопасен — создаём на каждую сортировку.
func newCollator() *collate.Collator {
	return collate.New(language.Vietnamese, collate.IgnoreCase)
}

// compareKeys сравнивает ключи: сначала Given, затем Full.
func compareKeys(c *collate.Collator, a, b Key) int {
	if r := c.CompareString(a.Given, b.Given); r != 0 {
		return r
	}
	return c.CompareString(a.Full, b.Full)
}

// Sort упорядочивает записи по ключу сортировки на месте.
// Сортировка устойчивая: равные ключи сохраняют исходный порядок в обоих направлениях.
func Sort(items []model.Account, dir model.SortDirection) {
	c := newCollator()
	keyFor := func(a *model.Account) Key {
		if a.SortKey.IsZero() {
			return KeyOf(a.FullName)
		}
		return a.SortKey
	}

	slices.SortStableFunc(items, func(a, b model.Account) int {
		r := compareKeys(c, keyFor(&a), keyFor(&b))
		if dir == model.SortDesc {
			return -r
		}
		return r
	})
}
