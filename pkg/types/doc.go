// Package types defines the public vocabulary of the worldstore system:
// value kinds and their codecs, the field and descriptor model, the schema
// registry, the materialized Instance type, the Store and Locator
// interfaces, configuration, and the standard errors returned by every
// backend.
//
// A caller declares entity types as Descriptors, registers them in a
// Registry, and opens a Store over that registry. All persistence goes
// through the Store; types itself holds no state beyond the registry.
package types
