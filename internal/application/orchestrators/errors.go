package orchestrators

import (
	"errors"

	"refdesk/internal/adapters/transfer"
)

// Errors shared by several orchestrators. Domain packages own their own
// validation and transition errors.
var (
	ErrForbidden          = errors.New("you do not have permission to do this")
	ErrEmailAlreadyExists = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked after repeated failed logins")
	ErrAccountPending     = errors.New("account is awaiting approval")
	ErrAccountRejected    = errors.New("account registration was rejected")
	ErrAccountSuspended   = errors.New("account is suspended")
	ErrSelfRegisterRole   = errors.New("only referees and organizers can register")
	ErrSelfStatusChange   = errors.New("admins cannot change their own status or role")
	ErrInvalidDecision    = errors.New("decision must be approve or reject")
	ErrReceiptTooLarge    = errors.New("receipt exceeds the upload size limit")
	ErrReceiptType        = errors.New("receipt must be a PDF, JPEG or PNG file")
	ErrNoReceipt          = errors.New("honor has no receipt")
	ErrUnknownKind        = transfer.ErrUnknownKind
	ErrUnknownFormat      = transfer.ErrUnknownFormat
	ErrEmptyImport        = errors.New("import file has no rows")
	ErrRefereeUnavailable = errors.New("referee is not active")
	ErrDatesLocked        = errors.New("event dates cannot change while referees are assigned")
	ErrQuotaBelowAssigned = errors.New("referee quota cannot drop below the primary referees already assigned")

	errNotReferee = errors.New("account is not a referee")
)
