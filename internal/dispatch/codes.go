package dispatch

// Machine error codes carried in the response envelope, per spec §7.
const (
	CodeInvalidJSON             = "INVALID_JSON"
	CodeInvalidUserID           = "INVALID_USER_ID"
	CodeInvalidNickname         = "INVALID_NICKNAME"
	CodeInvalidPassword         = "INVALID_PASSWORD"
	CodeInvalidName             = "INVALID_NAME"
	CodeInvalidGroupID          = "INVALID_GROUP_ID"
	CodeInvalidTarget           = "INVALID_TARGET"
	CodeInvalidConversationType = "INVALID_CONVERSATION_TYPE"
	CodeInvalidRequest          = "INVALID_REQUEST"
	CodeInvalidFileID           = "INVALID_FILE_ID"
	CodeInvalidSize             = "INVALID_SIZE"
	CodeInvalidSHA256           = "INVALID_SHA256"
	CodeEmptyChunk              = "EMPTY_CHUNK"
	CodeChunkTooLarge           = "CHUNK_TOO_LARGE"

	CodeNotLoggedIn      = "NOT_LOGGED_IN"
	CodeLoginFailed      = "LOGIN_FAILED"
	CodePermissionDenied = "PERMISSION_DENIED"

	CodeUserAlreadyExists = "USER_ALREADY_EXISTS"
	CodeUserNotFound      = "USER_NOT_FOUND"
	CodeTargetNotFound    = "TARGET_NOT_FOUND"
	CodeNotInGroup        = "NOT_IN_GROUP"
	CodeNoRecipients      = "NO_RECIPIENTS"
	CodeGroupNotFound     = "GROUP_NOT_FOUND"
	CodeUnknownAction     = "UNKNOWN_ACTION"

	CodeResumeFailed   = "RESUME_FAILED"
	CodeOfferFailed    = "OFFER_FAILED"
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeFinalizeFailed = "FINALIZE_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"
	CodeStoreFailed    = "STORE_FAILED"
)

// Field length caps per spec §4.9 step 3.
const (
	maxIdentifierLen = 64
	maxFileNameLen   = 255
	maxContentLen    = 4096
	sha256Len        = 64
)
