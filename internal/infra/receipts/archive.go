package receipts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rentcars/internal/app/policies"
	"rentcars/internal/infra/storage/s3"
)

var ErrBookingIDRequired = errors.New("receipts: booking id required")

// Archive renders receipts and keeps them in object storage under
// <prefix>/<yyyy>/<mm>/<booking id>.pdf.
type Archive struct {
	Renderer Renderer
	Store    s3.ObjectStore
	Prefix   string
}

func NewArchive(renderer Renderer, store s3.ObjectStore, prefix string) *Archive {
	if prefix = strings.Trim(strings.TrimSpace(prefix), "/"); prefix == "" {
		prefix = "receipts"
	}
	return &Archive{Renderer: renderer, Store: store, Prefix: prefix}
}

func (a *Archive) Archive(ctx context.Context, receipt policies.Receipt) (string, error) {
	if strings.TrimSpace(receipt.BookingID) == "" {
		return "", ErrBookingIDRequired
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body, err := a.Renderer.Render(receipt)
	if err != nil {
		return "", err
	}
	location, err := a.Store.Put(ctx, a.key(receipt), body, "application/pdf")
	if err != nil {
		return "", fmt.Errorf("receipts: store %s: %w", receipt.BookingID, err)
	}
	return location, nil
}

func (a *Archive) key(receipt policies.Receipt) string {
	issued := receipt.IssuedAt.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%s.pdf", a.Prefix, issued.Year(), int(issued.Month()), receipt.BookingID)
}

var _ policies.ReceiptArchive = (*Archive)(nil)
