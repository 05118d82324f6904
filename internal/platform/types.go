// Package platform provides the HTTP client for the EVO Platform RPC fleet:
// license validation, cloud credential listing, and demo-mode verification.
package platform

import "fmt"

// LicenseReason enumerates the reasons a license can be invalid.
type LicenseReason string

const (
	LicenseReasonExpired       LicenseReason = "expired"
	LicenseReasonNoSeats       LicenseReason = "no_seats"
	LicenseReasonNoLicense     LicenseReason = "no_license"
	LicenseReasonSeatsExceeded LicenseReason = "seats_exceeded"
)

// ParseLicenseReason validates a reason code received from the platform.
func ParseLicenseReason(s string) (LicenseReason, error) {
	switch LicenseReason(s) {
	case LicenseReasonExpired, LicenseReasonNoSeats,
		LicenseReasonNoLicense, LicenseReasonSeatsExceeded:
		return LicenseReason(s), nil
	default:
		return "", fmt.Errorf("unknown license reason %q", s)
	}
}

// LicenseStatus is the result of a license validation call.
type LicenseStatus struct {
	IsValid bool          `json:"isValid"`
	Reason  LicenseReason `json:"reason,omitempty"`
	Message string        `json:"message,omitempty"`
}

// CloudAccount is a connected cloud account (AWS or Azure credential set).
type CloudAccount struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// DemoState is the result of a demo-mode verification call. IsVerified
// distinguishes "we don't know yet" from "we checked".
type DemoState struct {
	IsDemoMode bool `json:"isDemoMode"`
	IsVerified bool `json:"verified"`
}
