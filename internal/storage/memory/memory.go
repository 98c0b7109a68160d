package memory

import (
	"blibank/internal/storage"
)

var (
	_ storage.AccountStore   = (*AccountStore)(nil)
	_ storage.StatementStore = (*StatementStore)(nil)
)
