package deviceRepo

import (
	"context"
	"errors"

	"homely/models"
)

// ErrTokenNotFound is returned when an account has no registered device.
var ErrTokenNotFound = errors.New("device token not found")

// DeviceTokenRepository stores FCM registration tokens per account.
type DeviceTokenRepository interface {
	SaveToken(ctx context.Context, token models.DeviceToken) error
	GetToken(ctx context.Context, ownerID, role string) (string, error)
}
