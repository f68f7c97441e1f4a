package commands

// Command describes a slash command for routing and the Telegram command menu.
type Command struct {
	Description string
	// AdminOnly commands are hidden from the public menu; the handler still
	// performs its own authorization.
	AdminOnly bool
	Hidden    bool
	Aliases   []string
}
