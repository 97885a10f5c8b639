package bank

import (
	"fmt"
	"strings"
)

// Field describes one credential input for a variant.
type Field struct {
	Name   string `json:"name" yaml:"name"`
	Label  string `json:"label" yaml:"label"`
	Secret bool   `json:"secret" yaml:"secret"`
}

// credentialSchemas is the UI-facing lookup table. Order matters: forms are
// rendered in this order.
var credentialSchemas = map[Variant][]Field{
	VariantA: {
		{Name: "user_code", Label: "User code"},
		{Name: "password", Label: "Password", Secret: true},
		{Name: "iban", Label: "IBAN"},
	},
	VariantB: {
		{Name: "customer_no", Label: "Customer number"},
		{Name: "user_code", Label: "User code"},
		{Name: "password", Label: "Password", Secret: true},
		{Name: "account_no", Label: "Account number"},
	},
	VariantC: {
		{Name: "username", Label: "Username"},
		{Name: "password", Label: "Password", Secret: true},
		{Name: "account_no", Label: "Account number"},
		{Name: "branch_code", Label: "Branch code"},
	},
}

// Schema returns the ordered credential fields for v.
func Schema(v Variant) ([]Field, error) {
	fields, ok := credentialSchemas[v]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVariant, uint8(v))
	}
	out := make([]Field, len(fields))
	copy(out, fields)
	return out, nil
}

// Credentials is implemented by exactly one struct per variant.
type Credentials interface {
	Variant() Variant
	// Fields returns the credential as a schema-keyed map, secrets included.
	Fields() map[string]string
	isCredentials()
}

type CredentialsA struct {
	UserCode string
	Password string
	IBAN     string
}

func (CredentialsA) Variant() Variant { return VariantA }
func (CredentialsA) isCredentials()   {}

func (c CredentialsA) Fields() map[string]string {
	return map[string]string{"user_code": c.UserCode, "password": c.Password, "iban": c.IBAN}
}

type CredentialsB struct {
	CustomerNo string
	UserCode   string
	Password   string
	AccountNo  string
}

func (CredentialsB) Variant() Variant { return VariantB }
func (CredentialsB) isCredentials()   {}

func (c CredentialsB) Fields() map[string]string {
	return map[string]string{
		"customer_no": c.CustomerNo,
		"user_code":   c.UserCode,
		"password":    c.Password,
		"account_no":  c.AccountNo,
	}
}

type CredentialsC struct {
	Username   string
	Password   string
	AccountNo  string
	BranchCode string
}

func (CredentialsC) Variant() Variant { return VariantC }
func (CredentialsC) isCredentials()   {}

func (c CredentialsC) Fields() map[string]string {
	return map[string]string{
		"username":    c.Username,
		"password":    c.Password,
		"account_no":  c.AccountNo,
		"branch_code": c.BranchCode,
	}
}

// ValidateFields checks that every field of v's schema is present and
// non-blank in fields. Unknown keys are ignored.
func ValidateFields(v Variant, fields map[string]string) error {
	schema, err := Schema(v)
	if err != nil {
		return err
	}
	var missing []string
	for _, f := range schema {
		if strings.TrimSpace(fields[f.Name]) == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Variant: v, Missing: missing}
	}
	return nil
}

// ParseCredentials validates fields and builds the typed credential for v.
func ParseCredentials(v Variant, fields map[string]string) (Credentials, error) {
	if err := ValidateFields(v, fields); err != nil {
		return nil, err
	}
	get := func(name string) string { return strings.TrimSpace(fields[name]) }

	switch v {
	case VariantA:
		return CredentialsA{UserCode: get("user_code"), Password: get("password"), IBAN: get("iban")}, nil
	case VariantB:
		return CredentialsB{
			CustomerNo: get("customer_no"),
			UserCode:   get("user_code"),
			Password:   get("password"),
			AccountNo:  get("account_no"),
		}, nil
	case VariantC:
		return CredentialsC{
			Username:   get("username"),
			Password:   get("password"),
			AccountNo:  get("account_no"),
			BranchCode: get("branch_code"),
		}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownVariant, uint8(v))
}

// MergeForUpdate overlays submitted on stored. A secret field left blank in
// submitted keeps its stored value, so a form can be re-saved without
// re-entering the password. Non-secret fields always take the submitted value.
func MergeForUpdate(v Variant, submitted, stored map[string]string) (map[string]string, error) {
	schema, err := Schema(v)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]string, len(schema))
	for _, f := range schema {
		value := strings.TrimSpace(submitted[f.Name])
		if value == "" && f.Secret {
			value = stored[f.Name]
		}
		merged[f.Name] = value
	}
	return merged, nil
}

// PublicFields returns the non-secret fields of c, for redisplay.
func PublicFields(c Credentials) map[string]string {
	schema, err := Schema(c.Variant())
	if err != nil {
		return nil
	}
	all := c.Fields()
	out := make(map[string]string, len(schema))
	for _, f := range schema {
		if !f.Secret {
			out[f.Name] = all[f.Name]
		}
	}
	return out
}
