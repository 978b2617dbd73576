package objectstore

import "strings"

// Key is an object name made of an optional prefix and a base name.
type Key struct {
	prefix string
	name   string
}

func NewKey(prefix, name string) Key {
	return Key{
		prefix: strings.Trim(prefix, "/"),
		name:   strings.TrimLeft(name, "/"),
	}
}

func (k Key) FullName() string {
	if k.prefix == "" {
		return k.name
	}
	return k.prefix + "/" + k.name
}

func (k Key) Name() string {
	return k.name
}
