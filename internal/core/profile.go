package core

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultCurrency is the currency of a profile saved without one.
const DefaultCurrency = "USD"

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidCurrency = errors.New("currency must be a three letter code")
	ErrInvalidLogoURL  = errors.New("logo url must be an absolute http(s) url")
)

// Profile is the issuing company printed on every invoice of its owner.
type Profile struct {
	CompanyName string    `json:"companyName"`
	Address     string    `json:"address"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	LogoURL     string    `json:"logoUrl"`
	Currency    string    `json:"currency"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

var currencySymbols = map[string]string{
	"USD": "$",
	"CAD": "$",
	"AUD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// Normalize trims every field, upper-cases the currency and fills in
// DefaultCurrency.
func (p Profile) Normalize() Profile {
	p.CompanyName = strings.TrimSpace(p.CompanyName)
	p.Address = strings.TrimSpace(p.Address)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	p.LogoURL = strings.TrimSpace(p.LogoURL)
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}
	return p
}

func (p Profile) Validate() error {
	if utf8.RuneCountInString(p.CompanyName) > 200 {
		return &ValidationError{Field: "companyName", Err: errors.New("company name too long (max 200 characters)")}
	}
	if utf8.RuneCountInString(p.Address) > 500 {
		return &ValidationError{Field: "address", Err: errors.New("address too long (max 500 characters)")}
	}
	if p.Email != "" {
		if err := ValidateEmail(p.Email); err != nil {
			return &ValidationError{Field: "email", Err: err}
		}
	}
	if p.LogoURL != "" {
		u, err := url.Parse(p.LogoURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ValidationError{Field: "logoUrl", Err: ErrInvalidLogoURL}
		}
	}
	if len(p.Currency) != 3 || strings.Trim(p.Currency, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") != "" {
		return &ValidationError{Field: "currency", Err: fmt.Errorf("%w: %q", ErrInvalidCurrency, p.Currency)}
	}
	return nil
}

// IsEmpty reports whether the profile has nothing to print. Currency and
// logo do not count.
func (p Profile) IsEmpty() bool {
	for _, s := range []string{p.CompanyName, p.Address, p.Email, p.Phone} {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// CurrencySymbol maps a currency code to the symbol shown before amounts.
// Codes without a known symbol are shown as "CHF ".
func CurrencySymbol(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if sym, ok := currencySymbols[code]; ok {
		return sym
	}
	if code == "" {
		return ""
	}
	return code + " "
}
