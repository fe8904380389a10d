package platega

type Config struct {
	BaseURL       string `envconfig:"BASE_URL" default:"https://app.platega.io"`
	MerchantID    string `envconfig:"MERCHANT_ID"`
	Secret        string `envconfig:"SECRET"`
	PaymentMethod int    `envconfig:"PAYMENT_METHOD" default:"2"` // код способа оплаты на стороне агрегатора (2 - СБП)
	ReturnURL     string `envconfig:"RETURN_URL"`
	FailedURL     string `envconfig:"FAILED_URL"`
}
