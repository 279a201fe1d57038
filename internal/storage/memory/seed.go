package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/tinoosan/finance/internal/dictionary"
	"github.com/tinoosan/finance/internal/ledger"
)

// SeedDev inserts a user with the dictionary's development accounts.
func (s *Store) SeedDev(ctx context.Context) (ledger.User, []ledger.Account, error) {
	user := ledger.User{ID: uuid.New()}
	s.SeedUser(user)
	out := make([]ledger.Account, 0, 2)
	for _, a := range dictionary.DevAccounts(user.ID) {
		created, err := s.CreateAccount(ctx, a)
		if err != nil {
			return ledger.User{}, nil, err
		}
		out = append(out, created)
	}
	return user, out, nil
}
