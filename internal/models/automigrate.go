package models

// AllTables returns a slice of all tables in the database.
func AllTables() []interface{} {
	return []interface{}{
		&Actor{},
		&Account{},
		&Token{},
		&Activity{}, &Membership{},
		&Comment{},
		&Follow{},
	}
}
