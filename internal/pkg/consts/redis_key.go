package consts

const (
	PreferenceKey  = "inbox:pref:"
	ActiveTabScope = "active_tab:"
)
