package jobs

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/onlyold1/rtg-shop/internal/ports/persistence"
	repoPorts "github.com/onlyold1/rtg-shop/internal/ports/repository"
	servicePorts "github.com/onlyold1/rtg-shop/internal/ports/service"
	storagePorts "github.com/onlyold1/rtg-shop/internal/ports/storage"
)

const (
	ledgerExportName = "ledger-export"

	exportURLTTL = 24 * time.Hour
)

// LedgerExport ночная выгрузка всех попыток оплаты за прошедшие сутки
// в S3 (CSV). Журнал не чистится: выгрузка нужна аудиту и сверке
type LedgerExport struct {
	db          persistence.Persistence
	paymentRepo repoPorts.IPaymentRepo
	s3          storagePorts.IS3Client
	alerter     servicePorts.IAlerterService
	log         *slog.Logger
	location    *time.Location
}

func NewLedgerExport(
	db persistence.Persistence,
	paymentRepo repoPorts.IPaymentRepo,
	s3 storagePorts.IS3Client,
	alerter servicePorts.IAlerterService,
	log *slog.Logger,
) *LedgerExport {
	location, _ := time.LoadLocation("Europe/Moscow")
	if location == nil {
		location = time.UTC
	}

	return &LedgerExport{
		db:          db,
		paymentRepo: paymentRepo,
		s3:          s3,
		alerter:     alerter,
		log:         log,
		location:    location,
	}
}

func (j *LedgerExport) Name() string {
	return ledgerExportName
}

// NextRun каждый день в 04:00 по Мск, после отзыва подписок
func (j *LedgerExport) NextRun(now time.Time) time.Time {
	nowMoscow := now.In(j.location)
	next := time.Date(nowMoscow.Year(), nowMoscow.Month(), nowMoscow.Day(), 4, 0, 0, 0, j.location)
	if next.Before(nowMoscow) || next.Equal(nowMoscow) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// Run выгружает попытки оплаты за прошедшие сутки
func (j *LedgerExport) Run(ctx context.Context) error {
	nowMoscow := time.Now().In(j.location)
	to := time.Date(nowMoscow.Year(), nowMoscow.Month(), nowMoscow.Day(), 0, 0, 0, 0, j.location)
	from := to.AddDate(0, 0, -1)

	payments, err := j.paymentRepo.ListCreatedBetween(ctx, j.db, from, to)
	if err != nil {
		return fmt.Errorf("failed to list payments for export: %w", err)
	}

	if len(payments) == 0 {
		j.log.Info("no payments to export", "date", from.Format("2006-01-02"))
		return nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"id", "user_id", "amount", "currency", "months", "provider", "provider_tx_id", "status", "activated_at", "created_at", "updated_at"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, p := range payments {
		providerTxID := ""
		if p.ProviderTxID != nil {
			providerTxID = *p.ProviderTxID
		}
		activatedAt := ""
		if p.ActivatedAt != nil {
			activatedAt = p.ActivatedAt.Format(time.RFC3339)
		}

		row := []string{
			strconv.FormatInt(p.ID, 10),
			strconv.FormatInt(p.UserID, 10),
			p.Amount.String(),
			p.Currency,
			strconv.Itoa(p.Months),
			string(p.Provider),
			providerTxID,
			string(p.Status),
			activatedAt,
			p.CreatedAt.Format(time.RFC3339),
			p.UpdatedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}

	path := fmt.Sprintf("exports/%s/payments.csv", from.Format("2006-01-02"))
	if err := j.s3.PutFile(ctx, path, buf.Bytes(), "text/csv"); err != nil {
		return fmt.Errorf("failed to upload export: %w", err)
	}

	j.log.Info("ledger export uploaded", "path", path, "rows", len(payments))

	if j.alerter != nil {
		url, err := j.s3.GetPresignedURL(ctx, path, exportURLTTL)
		if err != nil {
			j.log.Warn("failed to presign export url", "error", err, "path", path)
			return nil
		}
		message := fmt.Sprintf("📊 Выгрузка платежей за %s: %d записей\n%s",
			from.Format("2006-01-02"), len(payments), url)
		if err := j.alerter.SendAlert(ctx, message); err != nil {
			j.log.Warn("failed to send export alert", "error", err)
		}
	}

	return nil
}
