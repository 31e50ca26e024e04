package locale

// Message key constants for localization.
// Every key must be present in each file under locales/.

const (
	// Command usage
	UsageNew     = "UsageNew"
	UsageReplace = "UsageReplace"

	// Publication outcomes
	Published               = "Published"
	PublishFailed           = "PublishFailed"
	PublishLikelyDone       = "PublishLikelyDone"
	PublishTemplateNotFound = "PublishTemplateNotFound"
	PublishNoCleanGroup     = "PublishNoCleanGroup"
	ReplaceGroupNotFound    = "ReplaceGroupNotFound"
	ReplaceInvalidGroupID   = "ReplaceInvalidGroupID"
	ReplaceDirtyFlagFailed  = "ReplaceDirtyFlagFailed"

	// Relay info card
	RelayCardFirstName = "RelayCardFirstName"
	RelayCardLastName  = "RelayCardLastName"
	RelayCardUsername  = "RelayCardUsername"
	RelayCardID        = "RelayCardID"
	RelayCardUnset     = "RelayCardUnset"
)
