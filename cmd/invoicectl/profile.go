package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"invoicer/internal/core"
)

// profileFile is the on-disk company profile. JSON files parse as YAML.
type profileFile struct {
	CompanyName string `yaml:"companyName"`
	Address     string `yaml:"address"`
	Email       string `yaml:"email"`
	Phone       string `yaml:"phone"`
	LogoURL     string `yaml:"logoUrl"`
	Currency    string `yaml:"currency"`
}

func loadProfile(path string) (core.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Profile{}, fmt.Errorf("read profile: %w", err)
	}
	var f profileFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return core.Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	p := core.Profile{
		CompanyName: f.CompanyName,
		Address:     f.Address,
		Email:       f.Email,
		Phone:       f.Phone,
		LogoURL:     f.LogoURL,
		Currency:    f.Currency,
	}.Normalize()
	if err := p.Validate(); err != nil {
		return core.Profile{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// staticProfile serves one profile to every owner.
type staticProfile core.Profile

func (s staticProfile) GetProfile(context.Context, string) (core.Profile, error) {
	return core.Profile(s), nil
}
