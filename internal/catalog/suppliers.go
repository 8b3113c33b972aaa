package catalog

import (
	"context"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/retail-console/internal/api"
	"finitefield.org/retail-console/internal/textutil"
	"finitefield.org/retail-console/internal/transport"
)

// SupplierRow is one row of the supplier table.
type SupplierRow struct {
	ID           int64  `json:"id"`
	Company      string `json:"company"`
	ContactEmail string `json:"contactEmail"`
	TaxNumber    string `json:"taxNumber"`
	Address      string `json:"address"`
	ProductCount int    `json:"productCount"`
}

// SupplierInput is the supplier form.
type SupplierInput struct {
	Company      string `json:"company"`
	ContactEmail string `json:"contactEmail"`
	TaxNumber    string `json:"taxNumber"`
	Address      string `json:"address"`
}

func (in SupplierInput) normalise() (api.SupplierInput, error) {
	out := api.SupplierInput{
		CompanyName:  strings.TrimSpace(in.Company),
		ContactEmail: strings.TrimSpace(in.ContactEmail),
		TaxNumber:    strings.TrimSpace(in.TaxNumber),
		Address:      strings.TrimSpace(in.Address),
	}
	if out.CompanyName == "" {
		return api.SupplierInput{}, transport.Invalid("Company name is required", ErrInvalidSupplier)
	}
	if out.ContactEmail != "" {
		if _, err := mail.ParseAddress(out.ContactEmail); err != nil {
			return api.SupplierInput{}, transport.Invalid("Contact email is not valid", ErrInvalidSupplier)
		}
	}
	return out, nil
}

// Suppliers lists suppliers with their product counts.
func (s *Service) Suppliers(ctx context.Context) ([]SupplierRow, bool) {
	suppliers, ok := s.api.Suppliers(ctx)
	if !ok {
		return nil, false
	}
	rows := make([]SupplierRow, 0, len(suppliers))
	for _, sup := range suppliers {
		rows = append(rows, SupplierRow{
			ID:           sup.SupplierID,
			Company:      textutil.Plain(sup.CompanyName),
			ContactEmail: sup.ContactEmail,
			TaxNumber:    sup.TaxNumber,
			Address:      textutil.Plain(sup.Address),
			ProductCount: sup.ProductCount,
		})
	}
	return rows, true
}

// CreateSupplier validates the form and creates a supplier.
func (s *Service) CreateSupplier(ctx context.Context, in SupplierInput) (int64, error) {
	body, err := in.normalise()
	if err != nil {
		return 0, err
	}
	resp, err := s.api.CreateSupplier(ctx, body)
	if err != nil {
		return 0, err
	}
	s.logger.Info("supplier created", zap.Int64("supplierID", resp.SupplierID))
	return resp.SupplierID, nil
}

// UpdateSupplier validates the form and updates a supplier.
func (s *Service) UpdateSupplier(ctx context.Context, supplierID int64, in SupplierInput) error {
	body, err := in.normalise()
	if err != nil {
		return err
	}
	if err := s.api.UpdateSupplier(ctx, supplierID, body); err != nil {
		return err
	}
	s.logger.Info("supplier updated", zap.Int64("supplierID", supplierID))
	return nil
}

// DeleteSupplier removes a supplier.
func (s *Service) DeleteSupplier(ctx context.Context, supplierID int64) error {
	if err := s.api.DeleteSupplier(ctx, supplierID); err != nil {
		return err
	}
	s.logger.Info("supplier deleted", zap.Int64("supplierID", supplierID))
	return nil
}
