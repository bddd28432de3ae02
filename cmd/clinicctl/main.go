// Точка входа clinicctl — консоль оператора учётных записей клиники.
// Работает напрямую с clinic API через то же представление, что и BFF:
// согласованный список, выбор, массовая смена статуса и обновление профиля.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
