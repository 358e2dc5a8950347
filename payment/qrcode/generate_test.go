package qrcode

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-college/payment/order"
)

func receiptOrder() order.PaymentOrder {
	return order.PaymentOrder{
		OrderID:           "ORDER_1714550400000_k3j9x0abc",
		ProviderPaymentID: "pay_1",
		Amount:            250000,
		Currency:          "INR",
		Status:            order.StatusCompleted,
	}
}

func TestReceiptURI(t *testing.T) {
	assert.Equal(t,
		"college-fee:ORDER_1714550400000_k3j9x0abc?amount=250000&currency=INR&payment=pay_1&status=completed",
		ReceiptURI(receiptOrder()))
}

func TestReceiptPNG(t *testing.T) {
	data, err := ReceiptPNG(receiptOrder())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, receiptSize, img.Bounds().Dx())
	assert.Equal(t, receiptSize, img.Bounds().Dy())
}
