package csvstore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"blibank/internal/domain"
)

// StatementStore keeps one append-only text file per client under dir,
// line format: timestamp,merchant,description,amount.
type StatementStore struct {
	dir    string
	logger *slog.Logger
}

func NewStatementStore(dir string, logger *slog.Logger) *StatementStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatementStore{
		dir:    dir,
		logger: logger,
	}
}

func (s *StatementStore) Append(ctx context.Context, email string, rec domain.PurchaseRecord) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create statement dir: %w", err)
	}
	f, err := os.OpenFile(s.path(email), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open statement: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s,%s,%s,%s\n",
		rec.Time.Format(domain.PurchaseTimeLayout),
		rec.Merchant,
		rec.Description,
		rec.Amount.StringFixed(2))
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append purchase: %w", err)
	}
	return f.Sync()
}

// Load returns the open statement for a client, or an empty statement when
// no file exists. Unparseable lines are skipped with a warning.
func (s *StatementStore) Load(ctx context.Context, email string) (*domain.Statement, error) {
	f, err := os.Open(s.path(email))
	if errors.Is(err, fs.ErrNotExist) {
		return &domain.Statement{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open statement: %w", err)
	}
	defer f.Close()

	statement := &domain.Statement{}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := parseStatementLine(line)
		if err != nil {
			s.logger.Warn("Skipping malformed statement line",
				slog.String("email", email),
				slog.Int("line", lineNo),
				slog.String("error", err.Error()))
			continue
		}
		statement.Records = append(statement.Records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read statement: %w", err)
	}
	return statement, nil
}

// Delete removes the whole statement file. Deleting a statement that does
// not exist is not an error.
func (s *StatementStore) Delete(ctx context.Context, email string) error {
	err := os.Remove(s.path(email))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete statement: %w", err)
	}
	return nil
}

func (s *StatementStore) path(email string) string {
	sanitized := strings.NewReplacer("@", "_", ".", "_").Replace(domain.NormalizeEmail(email))
	return filepath.Join(s.dir, "fatura_"+sanitized+".txt")
}

// parseStatementLine splits timestamp,merchant,description,amount. The
// description may itself contain commas, so the amount is taken from the
// last field and the description rejoined from everything in between.
func parseStatementLine(line string) (domain.PurchaseRecord, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 4 {
		return domain.PurchaseRecord{}, fmt.Errorf("expected 4 fields, got %d", len(fields))
	}
	ts, err := time.Parse(domain.PurchaseTimeLayout, fields[0])
	if err != nil {
		return domain.PurchaseRecord{}, fmt.Errorf("timestamp: %w", err)
	}
	amount, err := decimal.NewFromString(fields[len(fields)-1])
	if err != nil {
		return domain.PurchaseRecord{}, fmt.Errorf("amount: %w", err)
	}
	return domain.PurchaseRecord{
		Time:        ts,
		Merchant:    fields[1],
		Description: strings.Join(fields[2:len(fields)-1], ","),
		Amount:      domain.RoundMoney(amount),
	}, nil
}
