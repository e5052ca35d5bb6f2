package model

import (
	"fmt"
	"strings"
)

// TrackerKind identifies which detector produced a detection.
type TrackerKind int

const (
	// KindPixel is an invisible or tracking-path image or iframe.
	KindPixel TrackerKind = iota
	// KindScript is an external or inline script matching a tracker signature.
	KindScript
	// KindMetaTag is a verification or social-graph meta tag.
	KindMetaTag
	// KindCSSBackground is a CSS background-image beacon.
	KindCSSBackground
)

// AllTrackerKinds lists every kind in detector order.
var AllTrackerKinds = []TrackerKind{KindPixel, KindScript, KindMetaTag, KindCSSBackground}

// String returns the snake_case name of the kind.
func (k TrackerKind) String() string {
	switch k {
	case KindPixel:
		return "pixel"
	case KindScript:
		return "script"
	case KindMetaTag:
		return "meta_tag"
	case KindCSSBackground:
		return "css_background"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k TrackerKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *TrackerKind) UnmarshalText(text []byte) error {
	kind, err := ParseTrackerKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// ParseTrackerKind converts a name such as "meta_tag" into a TrackerKind.
func ParseTrackerKind(s string) (TrackerKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pixel":
		return KindPixel, nil
	case "script":
		return KindScript, nil
	case "meta_tag":
		return KindMetaTag, nil
	case "css_background":
		return KindCSSBackground, nil
	default:
		return KindPixel, fmt.Errorf("%w: %q", ErrUnknownTrackerKind, s)
	}
}

// Detection methods recorded in TrackerDetection.Method.
// The scorer distinguishes external from inline scripts through these values.
const (
	MethodPixelDimensions = "dimensions"
	MethodPixelBase64     = "base64_payload"
	MethodPixelPath       = "tracking_path"
	MethodPixelNoscript   = "noscript"
	MethodPixelDomain     = "tracker_domain"

	MethodExternalScript = "external_script"
	MethodInlineScript   = "inline_script"
	MethodFingerprinting = "fingerprinting"

	MethodVerificationMeta = "verification_meta"
	MethodSocialMeta       = "social_meta"

	MethodStyleTag    = "style_tag"
	MethodInlineStyle = "inline_style"
)
