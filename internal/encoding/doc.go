// Package encoding maps the output container and quality settings onto the
// external decode, encode, and remux commands.
//
// Container and Quality are closed enumerations whose behavior lives in
// lookup tables: each container knows its file extension, whether it needs a
// remux pass, and how chapters are expressed; each quality setting knows its
// bitrate, channel count, and speech tuning. The argument builders are pure
// functions of a descriptor plus those settings and never run anything.
package encoding
