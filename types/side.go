package types

type Side string

type Direction string

type OrderType string

const (
	SideTypeBuy  Side = "BUY"
	SideTypeSell Side = "SELL"

	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionExit  Direction = "EXIT"

	TypeMarket OrderType = "MARKET"
	TypeLimit  OrderType = "LIMIT"
)

func (s Side) Valid() bool {
	return s == SideTypeBuy || s == SideTypeSell
}

// Sign is +1 for buys and -1 for sells.
func (s Side) Sign() int64 {
	if s == SideTypeSell {
		return -1
	}
	return 1
}

func (d Direction) Valid() bool {
	switch d {
	case DirectionLong, DirectionShort, DirectionExit:
		return true
	}
	return false
}

func (t OrderType) Valid() bool {
	return t == TypeMarket || t == TypeLimit
}
