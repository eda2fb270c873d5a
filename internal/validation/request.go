package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var mnemonicRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9._-]{1,48}[A-Z0-9]$`)

var payrollRegex = regexp.MustCompile(`^[A-Za-z0-9-]{1,50}$`)

// ValidateMnemonic validates an EHR template mnemonic. Mnemonics are the
// short uppercase identifiers used by the clinical system.
func ValidateMnemonic(mnemonic string) error {
	if !mnemonicRegex.MatchString(mnemonic) {
		return fmt.Errorf("mnemonic must be 3-50 characters of uppercase letters, digits, dots, underscores or hyphens")
	}
	return nil
}

// ValidatePayrollNumber validates a staff payroll number. Empty is allowed
// since contractors and students have no payroll record.
func ValidatePayrollNumber(payroll string) error {
	if payroll == "" {
		return nil
	}
	if !payrollRegex.MatchString(payroll) {
		return fmt.Errorf("payroll number may only contain letters, digits and hyphens")
	}
	return nil
}

// ValidateJustification checks the free-text justification for a request.
func ValidateJustification(justification string) error {
	trimmed := strings.TrimSpace(justification)
	if trimmed == "" {
		return fmt.Errorf("justification is required")
	}
	if len(trimmed) < 10 {
		return fmt.Errorf("justification must be at least 10 characters")
	}
	if len(trimmed) > 2000 {
		return fmt.Errorf("justification must not exceed 2000 characters")
	}
	return nil
}

// ValidatePersonName validates a target user's first or last name.
func ValidatePersonName(field, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%s is required", field)
	}
	if len(trimmed) > 100 {
		return fmt.Errorf("%s must not exceed 100 characters", field)
	}
	return nil
}
