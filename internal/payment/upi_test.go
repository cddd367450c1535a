package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUPILink(t *testing.T) {
	tests := []struct {
		name    string
		upi     UPI
		amount  decimal.Decimal
		note    string
		want    string
		wantErr error
	}{
		{
			name:   "full",
			upi:    UPI{PayeeID: "cafe@okaxis", PayeeName: "Blue Cafe"},
			amount: decimal.NewFromFloat(597.1),
			note:   "Table 5",
			want:   "upi://pay?pa=cafe%40okaxis&pn=Blue%20Cafe&am=597.10&cu=INR&tn=Table%205",
		},
		{
			name:   "without name and note",
			upi:    UPI{PayeeID: "cafe@okaxis"},
			amount: decimal.NewFromInt(100),
			want:   "upi://pay?pa=cafe%40okaxis&am=100.00&cu=INR",
		},
		{
			name:    "not configured",
			amount:  decimal.NewFromInt(1),
			wantErr: ErrNotConfigured,
		},
		{
			name:    "zero amount",
			upi:     UPI{PayeeID: "cafe@okaxis"},
			amount:  decimal.Zero,
			wantErr: ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.upi.Link(tt.amount, tt.note)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlaceOrderLink(t *testing.T) {
	got, err := PlaceOrderLink("https://order.example.com/r1?lang=en", "5")
	require.NoError(t, err)
	assert.Equal(t, "https://order.example.com/r1?lang=en&table=5", got)

	_, err = PlaceOrderLink("", "5")
	assert.Error(t, err)
}
