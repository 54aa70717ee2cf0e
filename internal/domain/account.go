package domain

// Account holds the settled balance of an identity in the smallest payment unit.
type Account struct {
	Identity string
	Balance  uint64
}
