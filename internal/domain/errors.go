package domain

import "errors"

// Сентинельные ошибки доменного слоя
var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrPromoCodeNotFound    = errors.New("promo code not found")
	ErrProviderIDAlreadySet = errors.New("provider transaction id already set") // попытка перезаписать write-once поле
	ErrAlreadyActivated     = errors.New("payment already activated")
)

// BusinessError ошибка бизнес-логики, которая уже залогирована в UseCase
type BusinessError struct {
	Err error
}

func (e *BusinessError) Error() string {
	return e.Err.Error()
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func WrapBusinessError(err error) error {
	if err == nil {
		return nil
	}
	return &BusinessError{Err: err}
}

func IsBusinessError(err error) bool {
	var businessErr *BusinessError
	return errors.As(err, &businessErr)
}
