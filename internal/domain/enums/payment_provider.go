package enums

type PaymentProvider string

const (
	PaymentProviderCard   PaymentProvider = "card"
	PaymentProviderCrypto PaymentProvider = "crypto"
)
