package odata

import "strings"

// Kind is the primitive type of a structural property.
type Kind int

const (
	KindInt Kind = iota
	KindString
	KindTime
	KindEnum
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "Edm.Int32"
	case KindString:
		return "Edm.String"
	case KindTime:
		return "Edm.DateTimeOffset"
	case KindEnum:
		return "Enum"
	case KindBool:
		return "Edm.Boolean"
	}
	return "unknown"
}

// Property is a structural property exposed under its JSON name.
type Property struct {
	Name     string
	Kind     Kind
	Nullable bool
	// ReadOnly properties are never changed by a delta.
	ReadOnly bool
	// Enum holds member names in ordinal order for KindEnum.
	Enum []string
}

// EnumOrdinal resolves a member name (case-insensitive) to its ordinal.
func (p Property) EnumOrdinal(name string) (int, bool) {
	for i, n := range p.Enum {
		if strings.EqualFold(n, name) {
			return i, true
		}
	}
	return 0, false
}

// Navigation links an entity type to a collection of another.
type Navigation struct {
	Name   string
	Target *EntityType
}

// EntityType is the shape of one entity set as seen by one API version.
type EntityType struct {
	Name        string
	Set         string
	Key         string
	Properties  []Property
	Navigations []Navigation
}

// Property looks a property up by name, ignoring case.
func (e *EntityType) Property(name string) (Property, bool) {
	for _, p := range e.Properties {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Property{}, false
}

// Navigation looks a navigation property up by name, ignoring case.
func (e *EntityType) Navigation(name string) (Navigation, bool) {
	for _, n := range e.Navigations {
		if strings.EqualFold(n.Name, name) {
			return n, true
		}
	}
	return Navigation{}, false
}

// without returns a copy of e lacking the named properties.
func (e *EntityType) without(names ...string) *EntityType {
	out := *e
	out.Properties = nil
	for _, p := range e.Properties {
		drop := false
		for _, n := range names {
			if p.Name == n {
				drop = true
				break
			}
		}
		if !drop {
			out.Properties = append(out.Properties, p)
		}
	}
	out.Navigations = append([]Navigation(nil), e.Navigations...)
	return &out
}

var auditProperties = []Property{
	{Name: "createdDate", Kind: KindTime, ReadOnly: true},
	{Name: "createdBy", Kind: KindString, Nullable: true, ReadOnly: true},
	{Name: "lastModifiedDate", Kind: KindTime, ReadOnly: true},
	{Name: "lastModifiedBy", Kind: KindString, Nullable: true, ReadOnly: true},
}

func userType() *EntityType {
	props := []Property{
		{Name: "id", Kind: KindInt, ReadOnly: true},
		{Name: "firstName", Kind: KindString},
		{Name: "middleName", Kind: KindString, Nullable: true},
		{Name: "lastName", Kind: KindString},
		{Name: "email", Kind: KindString, Nullable: true},
		{Name: "phone", Kind: KindString, Nullable: true},
	}
	return &EntityType{Name: "User", Set: "users", Key: "id", Properties: append(props, auditProperties...)}
}

func addressType() *EntityType {
	props := []Property{
		{Name: "id", Kind: KindInt, ReadOnly: true},
		{Name: "streetNumber", Kind: KindInt},
		{Name: "streetName", Kind: KindString},
		{Name: "streetName2", Kind: KindString, Nullable: true},
		{Name: "city", Kind: KindString},
		{Name: "state", Kind: KindString},
		{Name: "zipCode", Kind: KindString},
		{Name: "name", Kind: KindString, Nullable: true},
		{Name: "type", Kind: KindEnum, Nullable: true, Enum: []string{"Residential", "Business"}},
		{Name: "suite", Kind: KindString, Nullable: true},
	}
	return &EntityType{Name: "Address", Set: "addresses", Key: "id", Properties: append(props, auditProperties...)}
}

func userNoteType() *EntityType {
	return &EntityType{Name: "UserNote", Set: "notes", Key: "id", Properties: []Property{
		{Name: "id", Kind: KindInt, ReadOnly: true},
		{Name: "userId", Kind: KindInt, ReadOnly: true},
		{Name: "note", Kind: KindString},
	}}
}

func addressNoteType() *EntityType {
	return &EntityType{Name: "AddressNote", Set: "notes", Key: "id", Properties: []Property{
		{Name: "id", Kind: KindInt, ReadOnly: true},
		{Name: "addressId", Kind: KindInt, ReadOnly: true},
		{Name: "note", Kind: KindString},
	}}
}
