package repository

import (
	"context"
	"database/sql"
	"fmt"

	"atelier-commission/internal/domain"

	"github.com/google/uuid"
)

// PostgresInvoicesRepository invoice draft data access on PostgreSQL.
type PostgresInvoicesRepository struct {
	db *sql.DB
}

func NewPostgresInvoicesRepository(db *sql.DB) *PostgresInvoicesRepository {
	return &PostgresInvoicesRepository{db: db}
}

var _ InvoicesRepository = (*PostgresInvoicesRepository)(nil)

func (r *PostgresInvoicesRepository) GetInvoiceByRequest(ctx context.Context, requestID string) (*domain.Invoice, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request_id is required: %w", domain.ErrValidation)
	}

	var inv domain.Invoice
	err := r.db.QueryRowContext(ctx, `
		SELECT invoice_id::text, request_id::text, billing_id, customer_id, status, created_at
		FROM invoices
		WHERE request_id = $1::uuid
	`, requestID).Scan(&inv.InvoiceID, &inv.RequestID, &inv.BillingID, &inv.CustomerID, &inv.Status, &inv.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("invoice for request %s: %w", requestID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get invoice: %w: %w", err, domain.ErrPersistence)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT item_id::text, name, price, quantity
		FROM invoice_items
		WHERE invoice_id = $1::uuid
		ORDER BY position
	`, inv.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice items: %w: %w", err, domain.ErrPersistence)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.InvoiceItem
		if err := rows.Scan(&item.ItemID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w: %w", err, domain.ErrPersistence)
		}
		inv.Items = append(inv.Items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoice items: %w: %w", err, domain.ErrPersistence)
	}
	return &inv, nil
}

func (r *PostgresInvoicesRepository) CreateDraft(ctx context.Context, invoice *domain.Invoice) (string, error) {
	if invoice == nil {
		return "", fmt.Errorf("invoice is required: %w", domain.ErrValidation)
	}
	if invoice.RequestID == "" || invoice.CustomerID == "" {
		return "", fmt.Errorf("request_id and customer_id are required: %w", domain.ErrValidation)
	}

	invoiceID := invoice.InvoiceID
	if invoiceID == "" {
		invoiceID = uuid.NewString()
	}
	status := invoice.Status
	if status == "" {
		status = domain.InvoiceCreating
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin invoice transaction: %w: %w", err, domain.ErrPersistence)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices (invoice_id, request_id, billing_id, customer_id, status)
		VALUES ($1::uuid, $2::uuid, $3, $4, $5)
	`, invoiceID, invoice.RequestID, invoice.BillingID, invoice.CustomerID, string(status))
	if err != nil {
		return "", fmt.Errorf("failed to insert invoice: %w: %w", err, domain.ErrPersistence)
	}

	for i, item := range invoice.Items {
		itemID := item.ItemID
		if itemID == "" {
			itemID = uuid.NewString()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO invoice_items (item_id, invoice_id, name, price, quantity, position)
			VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6)
		`, itemID, invoiceID, item.Name, item.Price, item.Quantity, i)
		if err != nil {
			return "", fmt.Errorf("failed to insert invoice item: %w: %w", err, domain.ErrPersistence)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit invoice transaction: %w: %w", err, domain.ErrPersistence)
	}
	return invoiceID, nil
}
