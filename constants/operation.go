package constants

import "strings"

// OperationType is the kind of policy transaction being entered.
type OperationType string

const (
	OperationNew         OperationType = "NUEVA"
	OperationRenewal     OperationType = "RENOVACION"
	OperationChange      OperationType = "CAMBIO"
	OperationEndorsement OperationType = "ENDOSO"
)

var allOperations = []OperationType{OperationNew, OperationRenewal, OperationChange, OperationEndorsement}

// ParseOperation accepts the stable value or a few operator spellings.
func ParseOperation(s string) (OperationType, bool) {
	n := strings.ToUpper(strings.TrimSpace(s))
	switch n {
	case "NEW", "NUEVO":
		return OperationNew, true
	case "RENEWAL", "RENOVAR":
		return OperationRenewal, true
	case "CHANGE", "MODIFICACION":
		return OperationChange, true
	case "ENDORSEMENT":
		return OperationEndorsement, true
	}
	for _, op := range allOperations {
		if n == string(op) {
			return op, true
		}
	}
	return "", false
}

// SkipsDocument reports whether the operation is entered without a scanned policy.
func (o OperationType) SkipsDocument() bool {
	return o == OperationEndorsement
}
