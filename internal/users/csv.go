package users

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseCSV reads accounts from a CSV file with a header row. The id,
// username and role columns are required; name and password are optional.
func ParseCSV(r io.Reader) ([]Account, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, k := range []string{"id", "username", "role"} {
		if _, ok := idx[k]; !ok {
			return nil, fmt.Errorf("missing column: %s", k)
		}
	}
	col := func(rec []string, k string) string {
		if i, ok := idx[k]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	var out []Account
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Account{
			User: User{
				ID:       col(rec, "id"),
				Username: col(rec, "username"),
				Name:     col(rec, "name"),
				Role:     strings.ToLower(col(rec, "role")),
			},
			Password: col(rec, "password"),
		})
	}
	return out, nil
}
