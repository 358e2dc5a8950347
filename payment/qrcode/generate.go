package qrcode

import (
	"fmt"
	"net/url"

	qrcode "github.com/skip2/go-qrcode"

	"go-college/payment/order"
)

const receiptSize = 256

// ReceiptURI is the text encoded into a receipt. It carries only public order
// facts so it can be scanned at the bursar desk and matched against the ledger.
func ReceiptURI(o order.PaymentOrder) string {
	q := url.Values{}
	q.Set("payment", o.ProviderPaymentID)
	q.Set("amount", fmt.Sprintf("%d", o.Amount))
	q.Set("currency", o.Currency)
	q.Set("status", string(o.Status))
	return fmt.Sprintf("college-fee:%s?%s", o.OrderID, q.Encode())
}

func ReceiptPNG(o order.PaymentOrder) ([]byte, error) {
	png, err := qrcode.Encode(ReceiptURI(o), qrcode.Medium, receiptSize)
	if err != nil {
		return nil, fmt.Errorf("encode receipt qr code: %w", err)
	}
	return png, nil
}
