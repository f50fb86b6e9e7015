package command

import "github.com/shopspring/decimal"

var oneHundred = decimal.NewFromInt(100)

// LineAmounts prices one order line. The tax is rounded half away from zero
// to cents before it is accumulated into the order.
func LineAmounts(unitPrice decimal.Decimal, quantity int, taxPercentage decimal.Decimal) (price, tax decimal.Decimal) {
	price = unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	tax = price.Mul(taxPercentage).Div(oneHundred).Round(2)
	return price, tax
}
