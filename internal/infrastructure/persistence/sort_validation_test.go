package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns DESC", "", "DESC"},
		{"ASC uppercase returns ASC", "ASC", "ASC"},
		{"asc lowercase returns ASC", "asc", "ASC"},
		{"DESC uppercase returns DESC", "DESC", "DESC"},
		{"invalid value returns DESC", "INVALID", "DESC"},
		{"sql injection attempt returns DESC", "ASC; DROP TABLE invoices;--", "DESC"},
		{"whitespace only returns DESC", "   ", "DESC"},
		{"whitespace around ASC returns ASC", "  asc  ", "ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateSortOrder(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		defaultField string
		expected     string
	}{
		{"empty string returns default", "", "created_at", "created_at"},
		{"valid field returns field", "cnpj", "created_at", "cnpj"},
		{"valid field id returns field", "id", "created_at", "id"},
		{"invalid field returns default", "invalid_field", "created_at", "created_at"},
		{"sql injection attempt returns default", "id; DROP TABLE issuers;--", "created_at", "created_at"},
		{"case sensitive - uppercase invalid", "CNPJ", "created_at", "created_at"},
		{"whitespace only returns default", "   ", "created_at", "created_at"},
		{"whitespace around valid field returns field", "  cnpj  ", "created_at", "cnpj"},
		{"field with spaces injection returns default", "cnpj issuers", "created_at", "created_at"},
		{"field with quotes injection returns default", "cnpj'--", "created_at", "created_at"},
		{"empty default with valid field", "cnpj", "", "cnpj"},
		{"empty default with invalid field", "invalid", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateSortField(tt.input, IssuerSortFields, tt.defaultField)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSortFieldsWhitelists(t *testing.T) {
	whitelists := map[string]map[string]bool{
		"TenantSortFields":  TenantSortFields,
		"IssuerSortFields":  IssuerSortFields,
		"InvoiceSortFields": InvoiceSortFields,
	}

	commonFields := []string{"id", "created_at", "updated_at"}

	for name, whitelist := range whitelists {
		t.Run(name+" contains common fields", func(t *testing.T) {
			for _, field := range commonFields {
				assert.True(t, whitelist[field], "%s should contain '%s'", name, field)
			}
		})

		t.Run(name+" is not empty", func(t *testing.T) {
			assert.Greater(t, len(whitelist), 3, "%s should have more than 3 fields", name)
		})
	}

	t.Run("invoice status is sortable", func(t *testing.T) {
		assert.True(t, InvoiceSortFields["status"])
		assert.True(t, InvoiceSortFields["total_amount"])
	})

	t.Run("tenant id is never a client-sortable field", func(t *testing.T) {
		assert.False(t, IssuerSortFields["tenant_id"])
		assert.False(t, InvoiceSortFields["tenant_id"])
	})
}

func TestSQLInjectionPrevention(t *testing.T) {
	injectionPayloads := []string{
		"id; DROP TABLE invoices;--",
		"id' OR '1'='1",
		"id\"; DROP TABLE invoices;--",
		"id UNION SELECT * FROM tenants",
		"id ORDER BY 1",
		"id, (SELECT api_key FROM tenants)",
		"CASE WHEN 1=1 THEN id ELSE number END",
		"id/**/;DROP TABLE invoices",
		"id\n; DROP TABLE invoices",
		"id\t; DROP TABLE invoices",
		"' OR ''='",
		"1; EXEC xp_cmdshell('dir')",
	}

	for _, payload := range injectionPayloads {
		t.Run("field: "+payload[:min(len(payload), 30)], func(t *testing.T) {
			result := ValidateSortField(payload, InvoiceSortFields, "created_at")
			assert.Equal(t, "created_at", result, "SQL injection payload should be rejected: %s", payload)
		})

		t.Run("order: "+payload[:min(len(payload), 30)], func(t *testing.T) {
			result := ValidateSortOrder(payload)
			assert.Equal(t, "DESC", result, "SQL injection payload should be rejected: %s", payload)
		})
	}
}
