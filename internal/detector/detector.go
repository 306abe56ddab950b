// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"errors"
	"strconv"
	"strings"
)

// Record is a caller-resolved named field map. The core never mutates it.
type Record struct {
	ID     string            `json:"id" yaml:"id"`
	Fields map[string]string `json:"fields" yaml:"fields"`
}

// Value returns the raw value of a field, or "" when absent
func (r Record) Value(field string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[field]
}

// Amount parses the schema's amount field. ok is false when the field is
// absent or not numeric.
func (r Record) Amount(schema FieldSchema) (float64, bool) {
	if schema.Amount == "" {
		return 0, false
	}
	raw := strings.TrimSpace(r.Value(schema.Amount))
	raw = strings.NewReplacer(",", "", "$", "", " ", "").Replace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FieldRole identifies what kind of identity a field carries.
// Roles are ordered by evidential precedence.
type FieldRole int

const (
	RoleJurisdiction FieldRole = iota
	RoleName
	RoleDescription
)

var roleNames = map[FieldRole]string{
	RoleJurisdiction: "jurisdiction",
	RoleName:         "name",
	RoleDescription:  "description",
}

func (r FieldRole) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler
func (r FieldRole) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *FieldRole) UnmarshalText(text []byte) error {
	for role, name := range roleNames {
		if name == string(text) {
			*r = role
			return nil
		}
	}
	return errors.New("unknown field role: " + string(text))
}

// FieldSchema maps record field names onto roles. Order within a role is
// the evaluation order.
type FieldSchema struct {
	Jurisdiction []string `yaml:"jurisdiction" json:"jurisdiction"`
	Name         []string `yaml:"name" json:"name"`
	Description  []string `yaml:"description" json:"description"`
	Amount       string   `yaml:"amount" json:"amount"`
}

// DefaultFieldSchema returns the field names used by the bundled adapters
func DefaultFieldSchema() FieldSchema {
	return FieldSchema{
		Jurisdiction: []string{"jurisdiction_code", "country_code", "country", "jurisdiction"},
		Name:         []string{"name", "recipient_name", "vendor_name", "parent_name"},
		Description:  []string{"description"},
		Amount:       "amount",
	}
}

// Fields returns the field names carrying the given role
func (s FieldSchema) Fields(role FieldRole) []string {
	switch role {
	case RoleJurisdiction:
		return s.Jurisdiction
	case RoleName:
		return s.Name
	case RoleDescription:
		return s.Description
	}
	return nil
}

// Roles returns all roles in precedence order
func Roles() []FieldRole {
	return []FieldRole{RoleJurisdiction, RoleName, RoleDescription}
}

// IdentityFields returns every field that can carry jurisdiction or entity
// identity, in role precedence order.
func (s FieldSchema) IdentityFields() []string {
	var fields []string
	for _, role := range Roles() {
		fields = append(fields, s.Fields(role)...)
	}
	return fields
}

// Validate checks that the schema can drive detection
func (s FieldSchema) Validate() error {
	if len(s.Jurisdiction) == 0 {
		return errors.New("schema: at least one jurisdiction field is required")
	}
	if len(s.Name) == 0 {
		return errors.New("schema: at least one name field is required")
	}
	seen := make(map[string]bool)
	for _, f := range s.IdentityFields() {
		if strings.TrimSpace(f) == "" {
			return errors.New("schema: empty field name")
		}
		if seen[f] {
			return errors.New("schema: field " + f + " assigned to more than one role")
		}
		seen[f] = true
	}
	return nil
}

// SignalSource extracts signals from a single record
type SignalSource interface {
	Match(rec Record) ([]SignalResult, error)
}
