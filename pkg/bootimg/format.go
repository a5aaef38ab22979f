package bootimg

// Format identifies one of the supported boot image formats.
type Format int

const (
	FormatAndroid Format = iota
	FormatBump
	FormatMTK
)

func (f Format) String() string {
	switch f {
	case FormatAndroid:
		return "android"
	case FormatBump:
		return "bump"
	case FormatMTK:
		return "mtk"
	default:
		return "unknown"
	}
}

// ParseFormat maps a format name to its Format.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "android":
		return FormatAndroid, nil
	case "bump":
		return FormatBump, nil
	case "mtk":
		return FormatMTK, nil
	default:
		return 0, errorf(KindInvalidArgument, "unknown format %q", name)
	}
}
