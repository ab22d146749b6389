package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/utils"
)

// Seed is the YAML fixture loaded into a development store.
type Seed struct {
	Users []struct {
		ID      string          `yaml:"id"`
		Name    string          `yaml:"name"`
		Email   string          `yaml:"email"`
		Balance int64           `yaml:"balance"`
		Address *domain.Address `yaml:"address"`
	} `yaml:"users"`
	SubOrders []struct {
		ID            string `yaml:"id"`
		MasterOrderID string `yaml:"master_order_id"`
		OwnerID       string `yaml:"owner_id"`
		RenterID      string `yaml:"renter_id"`
		Status        string `yaml:"status"`
		StartDate     string `yaml:"start_date"`
		EndDate       string `yaml:"end_date"`
		TotalRental   *int64 `yaml:"total_rental"`
		TotalDeposit  int64  `yaml:"total_deposit"`
		ShippingFee   int64  `yaml:"shipping_fee"`
		Items         []struct {
			ID            string `yaml:"id"`
			ProductRef    string `yaml:"product_ref"`
			Quantity      int32  `yaml:"quantity"`
			DailyRate     int64  `yaml:"daily_rate"`
			DepositAmount int64  `yaml:"deposit_amount"`
			Status        string `yaml:"status"`
		} `yaml:"items"`
	} `yaml:"sub_orders"`
}

// LoadSeedFile reads a YAML fixture and stores its users and sub-orders.
func (s *Store) LoadSeedFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}
	return s.ApplySeed(&seed)
}

func (s *Store) ApplySeed(seed *Seed) error {
	for _, u := range seed.Users {
		s.PutUser(&domain.User{ID: u.ID, Name: u.Name, Email: u.Email, Address: u.Address})
		s.SetBalance(u.ID, domain.Amount(u.Balance))
	}
	for _, so := range seed.SubOrders {
		start, err := utils.ParseDate(so.StartDate)
		if err != nil {
			return fmt.Errorf("sub-order %s: %w", so.ID, err)
		}
		end, err := utils.ParseDate(so.EndDate)
		if err != nil {
			return fmt.Errorf("sub-order %s: %w", so.ID, err)
		}
		a := &domain.RentalAgreement{
			ID:            so.ID,
			MasterOrderID: so.MasterOrderID,
			OwnerID:       so.OwnerID,
			RenterID:      so.RenterID,
			Status:        domain.SubOrderStatus(so.Status),
			RentalPeriod:  domain.RentalPeriod{StartDate: start, EndDate: end},
		}
		a.ContractPeriod = a.RentalPeriod
		if a.Status == "" {
			a.Status = domain.SubOrderStatusActive
		}
		if so.TotalRental != nil {
			a.PricingSnapshot = &domain.PricingSnapshot{
				TotalRental:  domain.Amount(*so.TotalRental),
				TotalDeposit: domain.Amount(so.TotalDeposit),
				ShippingFee:  domain.Amount(so.ShippingFee),
			}
		}
		for _, item := range so.Items {
			status := domain.ProductStatus(item.Status)
			if status == "" {
				status = domain.ProductStatusActive
			}
			a.LineItems = append(a.LineItems, domain.RentalLineItem{
				ID:            item.ID,
				ProductRef:    item.ProductRef,
				Quantity:      item.Quantity,
				DailyRate:     domain.Amount(item.DailyRate),
				DepositAmount: domain.Amount(item.DepositAmount),
				ProductStatus: status,
				EndDate:       end,
			})
		}
		s.PutAgreement(a)
	}
	return nil
}
