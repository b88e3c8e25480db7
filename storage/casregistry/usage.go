package casregistry

// Usage restricts which programs accept a given backend.
type Usage uint8

const (
	// UsageCLI marks backends the envelope CLI may open.
	UsageCLI Usage = 1 << iota
	// UsageDaemon marks backends envelope-casd may serve.
	UsageDaemon
)

func (u Usage) allows(want Usage) bool { return u&want != 0 }
