package wren

// Verb identifies which command grammar a client line matched.
type Verb int

const (
	// CmdUnknown marks a line whose leading keyword matched no command.
	CmdUnknown Verb = iota
	CmdHelo
	CmdMail
	CmdRcpt
	CmdData
	CmdQuit
)

// String returns the wire keyword for the verb.
func (v Verb) String() string {
	switch v {
	case CmdHelo:
		return "HELO"
	case CmdMail:
		return "MAIL"
	case CmdRcpt:
		return "RCPT"
	case CmdData:
		return "DATA"
	case CmdQuit:
		return "QUIT"
	default:
		return "UNKNOWN"
	}
}

// Command is the classified form of one raw client line.
type Command struct {
	// Verb is the command grammar whose keyword matched, or CmdUnknown.
	Verb Verb

	// ArgsValid reports whether the content after the keyword satisfied the
	// grammar. Meaningful only when Verb is not CmdUnknown.
	ArgsValid bool

	// Path holds the parsed argument of a valid MAIL FROM or RCPT TO.
	Path Path

	// Domain holds the argument text of a valid HELO.
	Domain string

	// Raw is the original line, terminator included.
	Raw string
}

// Classify runs one raw line, terminator included, through the command
// grammars in fixed priority order: HELO, MAIL FROM, RCPT TO, DATA, QUIT.
// The first grammar whose keyword matches decides the verb; later grammars
// are not consulted. Classify is total: every input yields exactly one
// Command and no error escapes it.
func Classify(line string) Command {
	cmd := Command{Raw: line}

	if domain, err := ParseHelo(NewCursor(line)); !notRecognized(err) {
		cmd.Verb = CmdHelo
		cmd.ArgsValid = err == nil
		cmd.Domain = domain
		return cmd
	}
	if path, err := ParseMailFrom(NewCursor(line)); !notRecognized(err) {
		cmd.Verb = CmdMail
		cmd.ArgsValid = err == nil
		cmd.Path = path
		return cmd
	}
	if path, err := ParseRcptTo(NewCursor(line)); !notRecognized(err) {
		cmd.Verb = CmdRcpt
		cmd.ArgsValid = err == nil
		cmd.Path = path
		return cmd
	}
	if err := ParseData(NewCursor(line)); !notRecognized(err) {
		cmd.Verb = CmdData
		cmd.ArgsValid = err == nil
		return cmd
	}
	if err := ParseQuit(NewCursor(line)); !notRecognized(err) {
		cmd.Verb = CmdQuit
		cmd.ArgsValid = err == nil
		return cmd
	}

	return cmd
}
