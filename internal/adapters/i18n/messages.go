package i18n

import (
	"database/sql"

	"golang.org/x/text/language"

	"refdesk/internal/adapters/auth"
	"refdesk/internal/adapters/blob"
	"refdesk/internal/adapters/transfer"
	"refdesk/internal/application/orchestrators"
	"refdesk/internal/application/projections"
	"refdesk/internal/domain/account"
	"refdesk/internal/domain/assignment"
	"refdesk/internal/domain/event"
	"refdesk/internal/domain/forum"
	"refdesk/internal/domain/honor"
	"refdesk/internal/domain/outbox"
	"refdesk/internal/domain/referee"
)

// Message keys.
const (
	KeyInternal          = "error.internal"
	KeyNotFound          = "error.not_found"
	KeyUnauthorized      = "error.unauthorized"
	KeyForbidden         = "error.forbidden"
	KeyDuplicate         = "error.duplicate"
	KeyInvalidReference  = "error.invalid_reference"
	KeyEmailTaken        = "error.email_taken"
	KeyBadCredentials    = "error.bad_credentials"
	KeyAccountLocked     = "error.account_locked"
	KeyAccountPending    = "error.account_pending"
	KeyAccountRejected   = "error.account_rejected"
	KeyAccountSuspended  = "error.account_suspended"
	KeyPasswordTooShort  = "error.password_too_short"
	KeyWrongPassword     = "error.wrong_password"
	KeyInvalidEmail      = "error.invalid_email"
	KeyRegisterRole      = "error.register_role"
	KeyInvalidTransition = "error.invalid_transition"
	KeyEventDates        = "error.event_dates"
	KeyEventNotApproved  = "error.event_not_approved"
	KeyEventNotFinished  = "error.event_not_finished"
	KeyScheduleConflict  = "error.schedule_conflict"
	KeyQuotaFull         = "error.quota_full"
	KeyAlreadyAssigned   = "error.already_assigned"
	KeyRefereeInactive   = "error.referee_inactive"
	KeyAmountTooLarge    = "error.amount_too_large"
	KeyAmountNotPositive = "error.amount_not_positive"
	KeyNoConfirmedDuty   = "error.no_confirmed_duty"
	KeyReasonRequired    = "error.reason_required"
	KeyReceiptTooLarge   = "error.receipt_too_large"
	KeyReceiptType       = "error.receipt_type"
	KeyTopicLocked       = "error.topic_locked"
	KeyModerated         = "error.moderated"
	KeyLearningAdmin     = "error.learning_admin"
	KeyValidation        = "error.validation"
)

var rules = []Rule{
	{Target: sql.ErrNoRows, Key: KeyNotFound},
	{Target: blob.ErrNotFound, Key: KeyNotFound},
	{Target: orchestrators.ErrNoReceipt, Key: KeyNotFound},
	{Target: auth.ErrInvalidToken, Key: KeyUnauthorized},
	{Target: orchestrators.ErrForbidden, Key: KeyForbidden},
	{Target: projections.ErrForbidden, Key: KeyForbidden},
	{Target: orchestrators.ErrSelfStatusChange, Key: KeyForbidden},
	{Target: assignment.ErrNotAssignee, Key: KeyForbidden},
	{Target: honor.ErrNotOwner, Key: KeyForbidden},
	{Target: forum.ErrNotAuthor, Key: KeyForbidden},
	{Target: orchestrators.ErrEmailAlreadyExists, Key: KeyEmailTaken},
	{Target: orchestrators.ErrInvalidCredentials, Key: KeyBadCredentials},
	{Target: orchestrators.ErrAccountLocked, Key: KeyAccountLocked},
	{Target: orchestrators.ErrAccountPending, Key: KeyAccountPending},
	{Target: orchestrators.ErrAccountRejected, Key: KeyAccountRejected},
	{Target: orchestrators.ErrAccountSuspended, Key: KeyAccountSuspended},
	{Target: account.ErrPasswordTooShort, Key: KeyPasswordTooShort},
	{Target: account.ErrWrongPassword, Key: KeyWrongPassword},
	{Target: account.ErrInvalidEmail, Key: KeyInvalidEmail},
	{Target: orchestrators.ErrSelfRegisterRole, Key: KeyRegisterRole},
	{Target: account.ErrNotPendingApproval, Key: KeyInvalidTransition},
	{Target: event.ErrNotPending, Key: KeyInvalidTransition},
	{Target: event.ErrNotCancellable, Key: KeyInvalidTransition},
	{Target: event.ErrNotEditable, Key: KeyInvalidTransition},
	{Target: assignment.ErrNotPending, Key: KeyInvalidTransition},
	{Target: assignment.ErrNotCancellable, Key: KeyInvalidTransition},
	{Target: honor.ErrNotSubmitted, Key: KeyInvalidTransition},
	{Target: honor.ErrNotVerified, Key: KeyInvalidTransition},
	{Target: honor.ErrNotResubmittable, Key: KeyInvalidTransition},
	{Target: outbox.ErrInvalidStatus, Key: KeyInvalidTransition},
	{Target: orchestrators.ErrDatesLocked, Key: KeyInvalidTransition},
	{Target: event.ErrEndBeforeStart, Key: KeyEventDates},
	{Target: event.ErrMissingDates, Key: KeyEventDates},
	{Target: event.ErrNotApproved, Key: KeyEventNotApproved},
	{Target: event.ErrNotFinished, Key: KeyEventNotFinished},
	{Target: assignment.ErrScheduleConflict, Key: KeyScheduleConflict},
	{Target: assignment.ErrQuotaFull, Key: KeyQuotaFull},
	{Target: assignment.ErrAlreadyAssigned, Key: KeyAlreadyAssigned},
	{Target: referee.ErrInactive, Key: KeyRefereeInactive},
	{Target: orchestrators.ErrRefereeUnavailable, Key: KeyRefereeInactive},
	{Target: honor.ErrAmountTooLarge, Key: KeyAmountTooLarge},
	{Target: honor.ErrNonPositiveAmount, Key: KeyAmountNotPositive},
	{Target: honor.ErrNoConfirmedDuty, Key: KeyNoConfirmedDuty},
	{Target: honor.ErrEmptyReason, Key: KeyReasonRequired},
	{Target: orchestrators.ErrReceiptTooLarge, Key: KeyReceiptTooLarge},
	{Target: orchestrators.ErrReceiptType, Key: KeyReceiptType},
	{Target: forum.ErrTopicLocked, Key: KeyTopicLocked},
	{Target: forum.ErrTopicHidden, Key: KeyTopicLocked},
	{Target: forum.ErrModerated, Key: KeyModerated},
	{Target: forum.ErrLearningAdmin, Key: KeyLearningAdmin},
	{Target: forum.ErrInvalidAction, Key: KeyValidation},
	{Target: orchestrators.ErrUnknownKind, Key: KeyValidation},
	{Target: orchestrators.ErrEmptyImport, Key: KeyValidation},
	{Target: transfer.ErrMalformed, Key: KeyValidation},
	{Target: transfer.ErrUnknownFormat, Key: KeyValidation},
	{Target: orchestrators.ErrQuotaBelowAssigned, Key: KeyValidation},

	// Driver and wrapped errors without a sentinel.
	{Substr: "not found", Key: KeyNotFound},
	{Substr: "unique constraint failed", Key: KeyDuplicate},
	{Substr: "already exists", Key: KeyDuplicate},
	{Substr: "foreign key constraint failed", Key: KeyInvalidReference},
	{Substr: "cannot be empty", Key: KeyValidation},
	{Substr: "cannot exceed", Key: KeyValidation},
	{Substr: "must be", Key: KeyValidation},
}

var translations = map[language.Tag]map[string]string{
	language.English: {
		KeyInternal:          "Something went wrong. Please try again.",
		KeyNotFound:          "The requested item was not found.",
		KeyUnauthorized:      "Please sign in to continue.",
		KeyForbidden:         "You do not have permission to do this.",
		KeyDuplicate:         "This record already exists.",
		KeyInvalidReference:  "A referenced record does not exist.",
		KeyEmailTaken:        "An account with this email already exists.",
		KeyBadCredentials:    "Invalid email or password.",
		KeyAccountLocked:     "Too many failed attempts. Try again in 15 minutes.",
		KeyAccountPending:    "Your registration is awaiting admin approval.",
		KeyAccountRejected:   "Your registration was rejected.",
		KeyAccountSuspended:  "Your account is suspended.",
		KeyPasswordTooShort:  "Password must be at least 8 characters.",
		KeyWrongPassword:     "The current password is incorrect.",
		KeyInvalidEmail:      "Please enter a valid email address.",
		KeyRegisterRole:      "You can only register as a referee or an organizer.",
		KeyInvalidTransition: "This action is not allowed in the current status.",
		KeyEventDates:        "Please enter a valid start and end date.",
		KeyEventNotApproved:  "Referees can only be assigned to approved events.",
		KeyEventNotFinished:  "The event has not finished yet.",
		KeyScheduleConflict:  "The referee is already booked on those dates.",
		KeyQuotaFull:         "All primary referee slots for this event are filled.",
		KeyAlreadyAssigned:   "The referee is already assigned to this event.",
		KeyRefereeInactive:   "The referee is not active.",
		KeyAmountTooLarge:    "The amount exceeds the allowed maximum.",
		KeyAmountNotPositive: "The amount must be greater than zero.",
		KeyNoConfirmedDuty:   "You can only claim an honor for an event you confirmed.",
		KeyReasonRequired:    "Please give a reason.",
		KeyReceiptTooLarge:   "The receipt file is too large.",
		KeyReceiptType:       "The receipt must be a PDF, JPEG or PNG file.",
		KeyTopicLocked:       "This topic is closed for replies.",
		KeyModerated:         "A moderator locked or hid this post, so it can no longer be edited.",
		KeyLearningAdmin:     "Only admins can post learning material.",
		KeyValidation:        "Please check the form and try again.",
	},
	language.Indonesian: {
		KeyInternal:          "Terjadi kesalahan. Silakan coba lagi.",
		KeyNotFound:          "Data yang diminta tidak ditemukan.",
		KeyUnauthorized:      "Silakan masuk terlebih dahulu.",
		KeyForbidden:         "Anda tidak memiliki izin untuk melakukan ini.",
		KeyDuplicate:         "Data ini sudah ada.",
		KeyInvalidReference:  "Data yang dirujuk tidak ada.",
		KeyEmailTaken:        "Email ini sudah terdaftar.",
		KeyBadCredentials:    "Email atau kata sandi salah.",
		KeyAccountLocked:     "Terlalu banyak percobaan gagal. Coba lagi dalam 15 menit.",
		KeyAccountPending:    "Pendaftaran Anda menunggu persetujuan admin.",
		KeyAccountRejected:   "Pendaftaran Anda ditolak.",
		KeyAccountSuspended:  "Akun Anda dinonaktifkan.",
		KeyPasswordTooShort:  "Kata sandi minimal 8 karakter.",
		KeyWrongPassword:     "Kata sandi saat ini salah.",
		KeyInvalidEmail:      "Masukkan alamat email yang valid.",
		KeyRegisterRole:      "Anda hanya dapat mendaftar sebagai wasit atau penyelenggara.",
		KeyInvalidTransition: "Tindakan ini tidak diizinkan pada status saat ini.",
		KeyEventDates:        "Masukkan tanggal mulai dan selesai yang valid.",
		KeyEventNotApproved:  "Wasit hanya dapat ditugaskan ke acara yang sudah disetujui.",
		KeyEventNotFinished:  "Acara belum selesai.",
		KeyScheduleConflict:  "Wasit sudah bertugas pada tanggal tersebut.",
		KeyQuotaFull:         "Semua slot wasit utama untuk acara ini sudah terisi.",
		KeyAlreadyAssigned:   "Wasit sudah ditugaskan ke acara ini.",
		KeyRefereeInactive:   "Wasit tidak aktif.",
		KeyAmountTooLarge:    "Jumlah melebihi batas maksimum.",
		KeyAmountNotPositive: "Jumlah harus lebih dari nol.",
		KeyNoConfirmedDuty:   "Honor hanya dapat diajukan untuk acara yang Anda konfirmasi.",
		KeyReasonRequired:    "Harap berikan alasan.",
		KeyReceiptTooLarge:   "Berkas kuitansi terlalu besar.",
		KeyReceiptType:       "Kuitansi harus berupa berkas PDF, JPEG, atau PNG.",
		KeyTopicLocked:       "Topik ini ditutup untuk balasan.",
		KeyModerated:         "Moderator telah mengunci atau menyembunyikan kiriman ini, sehingga tidak dapat diubah lagi.",
		KeyLearningAdmin:     "Hanya admin yang dapat mengunggah materi pembelajaran.",
		KeyValidation:        "Periksa kembali isian Anda.",
	},
}
