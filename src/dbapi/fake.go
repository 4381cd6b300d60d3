package dbapi

import "fmt"

// FakeClient is an in-memory implementation for unit tests. Error fields
// inject per-table failures for the matching operation.
type FakeClient struct {
	TablesMap map[string][]Row

	SelectErr map[string]error
	DeleteErr map[string]error
	UpsertErr map[string]error
}

func NewFake() *FakeClient {
	return &FakeClient{TablesMap: map[string][]Row{}}
}

// Seed replaces a table's rows.
func (f *FakeClient) Seed(table string, rows []Row) {
	f.TablesMap[table] = append([]Row(nil), rows...)
}

func (f *FakeClient) SelectAll(table string) ([]Row, error) {
	if err := f.SelectErr[table]; err != nil {
		return nil, err
	}
	rows, ok := f.TablesMap[table]
	if !ok {
		return nil, &UnknownTableError{Table: table}
	}
	return append([]Row(nil), rows...), nil
}

func (f *FakeClient) DeleteAll(table string) error {
	if err := f.DeleteErr[table]; err != nil {
		return err
	}
	if _, ok := f.TablesMap[table]; !ok {
		return &UnknownTableError{Table: table}
	}
	f.TablesMap[table] = nil
	return nil
}

func (f *FakeClient) Upsert(table string, rows []Row, conflictKey string) error {
	if err := f.UpsertErr[table]; err != nil {
		return err
	}
	existing, ok := f.TablesMap[table]
	if !ok {
		return &UnknownTableError{Table: table}
	}
	for _, row := range rows {
		key, present := row.Get(conflictKey)
		if !present {
			return &MissingKeyError{Table: table, Key: conflictKey}
		}
		replaced := false
		for i, have := range existing {
			haveKey, _ := have.Get(conflictKey)
			if fmt.Sprint(haveKey) == fmt.Sprint(key) {
				existing[i] = row
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, row)
		}
	}
	f.TablesMap[table] = existing
	return nil
}
