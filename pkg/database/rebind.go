package database

import (
	"strconv"
	"strings"
)

// IsPostgres reports whether driver names a postgres connection
func IsPostgres(driver string) bool {
	return driver == "postgres" || driver == "pgsql" || driver == "pq"
}

// Rebind rewrites ? placeholders to $n when driver is postgres
func Rebind(driver, query string) string {
	if !IsPostgres(driver) {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
