package odata

import "strings"

// Version is one API version with its own view of the entity model.
type Version struct {
	Name       string // path segment, "v1"
	Number     string // header value, "1.0"
	Deprecated bool

	Users        *EntityType
	Addresses    *EntityType
	UserNotes    *EntityType
	AddressNotes *EntityType
}

// EntitySet returns the entity type served under set.
func (v *Version) EntitySet(set string) (*EntityType, bool) {
	switch strings.ToLower(set) {
	case "users":
		return v.Users, true
	case "addresses":
		return v.Addresses, true
	}
	return nil, false
}

func newVersion(name, number string, deprecated bool, ignoreUser, ignoreAddress []string) *Version {
	users := userType().without(ignoreUser...)
	addresses := addressType().without(ignoreAddress...)
	userNotes := userNoteType()
	addressNotes := addressNoteType()
	users.Navigations = []Navigation{{Name: "addresses", Target: addresses}, {Name: "notes", Target: userNotes}}
	addresses.Navigations = []Navigation{{Name: "users", Target: users}, {Name: "notes", Target: addressNotes}}
	return &Version{
		Name:         name,
		Number:       number,
		Deprecated:   deprecated,
		Users:        users,
		Addresses:    addresses,
		UserNotes:    userNotes,
		AddressNotes: addressNotes,
	}
}

var (
	V1 = newVersion("v1", "1.0", true, nil, nil)
	V2 = newVersion("v2", "2.0", false, []string{"middleName"}, []string{"streetName2"})

	// Default serves unversioned routes.
	Default = V2

	Versions = []*Version{V1, V2}
)

// LookupVersion finds a version by path segment ("v1") or number ("1.0").
func LookupVersion(s string) (*Version, bool) {
	for _, v := range Versions {
		if strings.EqualFold(v.Name, s) || v.Number == s {
			return v, true
		}
	}
	return nil, false
}

// SupportedVersions is the api-supported-versions header value.
func SupportedVersions() string {
	return joinNumbers(func(*Version) bool { return true })
}

// DeprecatedVersions is the api-deprecated-versions header value.
func DeprecatedVersions() string {
	return joinNumbers(func(v *Version) bool { return v.Deprecated })
}

func joinNumbers(keep func(*Version) bool) string {
	var out []string
	for _, v := range Versions {
		if keep(v) {
			out = append(out, v.Number)
		}
	}
	return strings.Join(out, ", ")
}
