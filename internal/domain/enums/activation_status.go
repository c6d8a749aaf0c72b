package enums

type ActivationStatus string

const (
	ActivationStatusPending  ActivationStatus = "pending"
	ActivationStatusReceived ActivationStatus = "received"
	ActivationStatusTimeout  ActivationStatus = "timeout"
	ActivationStatusError    ActivationStatus = "error"
)

func (s ActivationStatus) Terminal() bool {
	switch s {
	case ActivationStatusReceived, ActivationStatusTimeout, ActivationStatusError:
		return true
	default:
		return false
	}
}
