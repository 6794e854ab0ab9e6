package filedb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/findash/findash-backend/internal/domain"
	"github.com/findash/findash-backend/internal/repository/storage"
	"gopkg.in/yaml.v3"
)

const accountsPath = "accounts.yaml"

// AccountRepository loads institution profiles from accounts.yaml.
type AccountRepository struct {
	store storage.Store
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(store storage.Store) *AccountRepository {
	return &AccountRepository{store: store}
}

type accountsFile struct {
	Accounts map[string]domain.Account `yaml:"accounts"`
}

// LoadAccounts reads accounts.yaml. A missing file yields no accounts,
// which only blocks importing until one is configured.
func (r *AccountRepository) LoadAccounts(ctx context.Context) (map[string]domain.Account, error) {
	data, err := r.store.Read(ctx, accountsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]domain.Account{}, nil
		}
		return nil, fmt.Errorf("failed to read accounts.yaml: %w", err)
	}

	var file accountsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse accounts.yaml: %w", err)
	}

	accounts := make(map[string]domain.Account, len(file.Accounts))
	for name, account := range file.Accounts {
		account.Name = name
		accounts[name] = account
	}
	return accounts, nil
}
