package stabilizer

// SignalKind is the kind of a runtime event fed to the stabilizer.
type SignalKind uint8

const (
	SignalError SignalKind = iota + 1
	SignalRejection
	SignalOnline
	SignalOffline
)

func (k SignalKind) String() string {
	switch k {
	case SignalError:
		return "error"
	case SignalRejection:
		return "rejection"
	case SignalOnline:
		return "online"
	case SignalOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Signal is one runtime event. Err is set for error and rejection signals.
type Signal struct {
	Kind SignalKind
	Err  error
}

func ErrorSignal(err error) Signal     { return Signal{Kind: SignalError, Err: err} }
func RejectionSignal(err error) Signal { return Signal{Kind: SignalRejection, Err: err} }
func OnlineSignal() Signal             { return Signal{Kind: SignalOnline} }
func OfflineSignal() Signal            { return Signal{Kind: SignalOffline} }
