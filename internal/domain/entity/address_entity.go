package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AddressType is stored as its ordinal and serialized by name.
type AddressType int

const (
	Residential AddressType = iota
	Business
)

var addressTypeNames = []string{"Residential", "Business"}

// AddressTypeNames lists the valid names in ordinal order.
func AddressTypeNames() []string {
	return append([]string(nil), addressTypeNames...)
}

func (t AddressType) String() string {
	if t < 0 || int(t) >= len(addressTypeNames) {
		return strconv.Itoa(int(t))
	}
	return addressTypeNames[t]
}

// Valid reports whether t is a known address type.
func (t AddressType) Valid() bool {
	return t >= 0 && int(t) < len(addressTypeNames)
}

func (t AddressType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid address type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText accepts a name (case-insensitive) or an ordinal.
func (t *AddressType) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	for i, n := range addressTypeNames {
		if strings.EqualFold(n, s) {
			*t = AddressType(i)
			return nil
		}
	}
	if i, err := strconv.Atoi(s); err == nil && AddressType(i).Valid() {
		*t = AddressType(i)
		return nil
	}
	return fmt.Errorf("invalid address type %q", s)
}

func (t *AddressType) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		if !AddressType(n).Valid() {
			return fmt.Errorf("invalid address type %d", n)
		}
		*t = AddressType(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return t.UnmarshalText([]byte(s))
}

// Address is a postal address shared by any number of users.
type Address struct {
	ID           int          `json:"id"`
	StreetNumber int          `json:"streetNumber" binding:"gte=0,lte=99999"`
	StreetName   string       `json:"streetName" binding:"required,min=2,max=100"`
	StreetName2  string       `json:"streetName2,omitempty" binding:"omitempty,min=2,max=100"`
	City         string       `json:"city" binding:"required,min=2,max=50"`
	State        string       `json:"state" binding:"required,max=20"`
	ZipCode      string       `json:"zipCode" binding:"required,min=5,max=11"`
	Name         string       `json:"name,omitempty" binding:"omitempty,min=2,max=50"`
	Type         *AddressType `json:"type,omitempty" binding:"omitempty,enum"`
	Suite        string       `json:"suite,omitempty" binding:"omitempty,min=1,max=20"`
	Audit

	Users []User        `json:"users,omitempty" binding:"-"`
	Notes []AddressNote `json:"notes,omitempty" binding:"-"`
}

// AddressNote is a free-text note owned by an address.
type AddressNote struct {
	ID        int    `json:"id"`
	AddressID int    `json:"addressId"`
	Note      string `json:"note" binding:"required,max=1024"`
}
