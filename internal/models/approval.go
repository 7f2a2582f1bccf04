package models

// ApprovalKind tags the outcome of an /approve command.
type ApprovalKind string

const (
	ApprovalApproved      ApprovalKind = "approved"
	ApprovalParseError    ApprovalKind = "parse_error"
	ApprovalDeliveryError ApprovalKind = "delivery_error"
	ApprovalUnauthorized  ApprovalKind = "unauthorized"
)

// ApprovalResult describes what happened to one approval attempt.
// UserID is zero when the command could not be parsed.
type ApprovalResult struct {
	Kind       ApprovalKind
	UserID     int64
	ApproverID int64
	Err        error
}

func (r ApprovalResult) OK() bool {
	return r.Kind == ApprovalApproved
}
