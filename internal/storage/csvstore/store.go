// Package csvstore persists accounts as a single CSV snapshot plus one
// statement file per client, matching the legacy BliBank on-disk layout.
package csvstore

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"

	"blibank/internal/domain"
	"blibank/pkg/crypto"
)

// Legacy column tokens. The CSV schema predates this implementation and is
// shared with other tooling, so the Portuguese tokens are preserved on disk
// and mapped at this boundary only.
const (
	kindClientToken = "cliente"
	kindAdminToken  = "admin"

	cardNoneToken     = "nenhum"
	cardPendingToken  = "pendente"
	cardApprovedToken = "aprovado"
)

var header = []string{
	"nome", "sobrenome", "email", "senha", "cpf", "tipo",
	"saldo", "status_cartao", "limite_cartao", "divida_cartao",
	"limite_requerido", "solicitar_encerramento",
}

// AccountStore reads and writes the account snapshot file. Every Save
// rewrites the whole table through a temp file rename, and writes an HMAC
// checksum sidecar when a signer key is configured.
type AccountStore struct {
	path   string
	signer *crypto.Signer
	logger *slog.Logger
}

func NewAccountStore(path string, signer *crypto.Signer, logger *slog.Logger) *AccountStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountStore{
		path:   path,
		signer: signer,
		logger: logger,
	}
}

// Load reads the snapshot. A missing file is an empty directory, not an
// error. Rows that cannot be parsed are skipped with a warning so one bad
// row never takes the whole bank down.
func (s *AccountStore) Load(ctx context.Context) ([]domain.Account, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	s.verifyChecksum(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	var accounts []domain.Account
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == header[0] {
			continue
		}
		account, err := parseRow(row)
		if err != nil {
			s.logger.Warn("Skipping malformed account row",
				slog.Int("row", i),
				slog.String("error", err.Error()))
			continue
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// Save rewrites the full snapshot. The write goes to a temp file in the same
// directory and is renamed over the target so readers never observe a
// half-written table.
func (s *AccountStore) Save(ctx context.Context, accounts []domain.Account) error {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, account := range accounts {
		if err := writer.Write(formatRow(account)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}

	if s.signer != nil {
		if err := os.WriteFile(s.sigPath(), []byte(s.signer.Sign(buf.Bytes())), 0o644); err != nil {
			s.logger.Warn("Failed to write snapshot checksum",
				slog.String("error", err.Error()))
		}
	}
	return nil
}

func (s *AccountStore) sigPath() string { return s.path + ".sig" }

// verifyChecksum is tamper evidence, not enforcement: a mismatch is logged
// and the snapshot still loads.
func (s *AccountStore) verifyChecksum(data []byte) {
	if s.signer == nil {
		return
	}
	sig, err := os.ReadFile(s.sigPath())
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		s.logger.Warn("Failed to read snapshot checksum",
			slog.String("error", err.Error()))
		return
	}
	if !s.signer.Verify(data, string(bytes.TrimSpace(sig))) {
		s.logger.Warn("Account snapshot checksum mismatch",
			slog.String("path", s.path))
	}
}

func formatRow(account domain.Account) []string {
	row := []string{
		account.Name(),
		account.Surname(),
		account.Email(),
		account.Credential(),
		account.CPF(),
	}
	switch a := account.(type) {
	case *domain.ClientAccount:
		row = append(row,
			kindClientToken,
			a.Balance.StringFixed(2),
			formatCardStatus(a.CardStatus),
			a.CreditLimit.StringFixed(2),
			a.CardDebt.StringFixed(2),
			a.RequestedLimit.StringFixed(2),
			strconv.FormatBool(a.ClosureRequested),
		)
	default:
		row = append(row, kindAdminToken, "", "", "", "", "", "")
	}
	return row
}

func parseRow(row []string) (domain.Account, error) {
	if len(row) < 6 {
		return nil, fmt.Errorf("expected at least 6 columns, got %d", len(row))
	}
	name, surname, email, credential, cpf, kind := row[0], row[1], row[2], row[3], row[4], row[5]
	if email == "" {
		return nil, errors.New("missing email")
	}

	switch kind {
	case kindAdminToken:
		return domain.NewAdminAccount(name, surname, email, credential, cpf), nil
	case kindClientToken:
		if len(row) < len(header) {
			return nil, fmt.Errorf("client row has %d columns, want %d", len(row), len(header))
		}
		client := domain.NewClientAccount(name, surname, email, credential, cpf)

		balance, err := parseMoney(row[6])
		if err != nil {
			return nil, fmt.Errorf("saldo: %w", err)
		}
		client.Balance = balance

		status, err := parseCardStatus(row[7])
		if err != nil {
			return nil, err
		}
		client.CardStatus = status

		if client.CreditLimit, err = parseMoney(row[8]); err != nil {
			return nil, fmt.Errorf("limite_cartao: %w", err)
		}
		if client.CardDebt, err = parseMoney(row[9]); err != nil {
			return nil, fmt.Errorf("divida_cartao: %w", err)
		}
		if client.RequestedLimit, err = parseMoney(row[10]); err != nil {
			return nil, fmt.Errorf("limite_requerido: %w", err)
		}
		if row[11] != "" {
			if client.ClosureRequested, err = strconv.ParseBool(row[11]); err != nil {
				return nil, fmt.Errorf("solicitar_encerramento: %w", err)
			}
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown account kind %q", kind)
	}
}

func parseMoney(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.RoundMoney(d), nil
}

func formatCardStatus(status domain.CardStatus) string {
	switch status {
	case domain.CardPending:
		return cardPendingToken
	case domain.CardApproved:
		return cardApprovedToken
	default:
		return cardNoneToken
	}
}

func parseCardStatus(token string) (domain.CardStatus, error) {
	switch token {
	case cardNoneToken, "":
		return domain.CardNone, nil
	case cardPendingToken:
		return domain.CardPending, nil
	case cardApprovedToken:
		return domain.CardApproved, nil
	default:
		return domain.CardNone, fmt.Errorf("unknown card status %q", token)
	}
}
