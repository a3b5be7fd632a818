package encoding

import (
	"fmt"
	"strings"
)

// Container is the output container format.
type Container string

const (
	ContainerMP4  Container = "mp4"
	ContainerOgg  Container = "ogg"
	ContainerWebM Container = "webm"
)

// ChapterFormat is how a container carries chapter markers.
type ChapterFormat int

const (
	// ChapterVorbis embeds CHAPTERxxx comments during encoding.
	ChapterVorbis ChapterFormat = iota
	// ChapterFFMetadata uses an ffmetadata sidecar during remux.
	ChapterFFMetadata
	// ChapterMatroska uses Matroska XML sidecars during remux.
	ChapterMatroska
)

// ContainerPolicy describes how a container is produced.
type ContainerPolicy struct {
	Extension string
	NeedsMux  bool
	Chapters  ChapterFormat
}

var containerPolicies = map[Container]ContainerPolicy{
	ContainerMP4:  {Extension: "m4b", NeedsMux: true, Chapters: ChapterFFMetadata},
	ContainerOgg:  {Extension: "opus", NeedsMux: false, Chapters: ChapterVorbis},
	ContainerWebM: {Extension: "webm", NeedsMux: true, Chapters: ChapterMatroska},
}

// Containers lists the supported containers in display order.
func Containers() []Container {
	return []Container{ContainerMP4, ContainerOgg, ContainerWebM}
}

// ParseContainer validates a container name.
func ParseContainer(value string) (Container, error) {
	c := Container(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := containerPolicies[c]; !ok {
		return "", fmt.Errorf("unsupported container %q (want one of %s)", value, joinNames(Containers()))
	}
	return c, nil
}

// Policy returns the container's lookup table entry.
func (c Container) Policy() ContainerPolicy {
	return containerPolicies[c]
}

func (c Container) String() string {
	return string(c)
}

// Quality is the opus encoding profile.
type Quality string

const (
	QualityMonoVoice   Quality = "mono-voice"
	QualityStereoVoice Quality = "stereo-voice"
	QualityStereo      Quality = "stereo"
)

// QualityPolicy is the bitrate and channel policy for a Quality.
type QualityPolicy struct {
	BitrateKbps int
	Channels    int
	Speech      bool
}

var qualityPolicies = map[Quality]QualityPolicy{
	QualityMonoVoice:   {BitrateKbps: 32, Channels: 1, Speech: true},
	QualityStereoVoice: {BitrateKbps: 48, Channels: 2, Speech: true},
	QualityStereo:      {BitrateKbps: 64, Channels: 2, Speech: false},
}

// Qualities lists the supported quality settings in display order.
func Qualities() []Quality {
	return []Quality{QualityMonoVoice, QualityStereoVoice, QualityStereo}
}

// ParseQuality validates a quality name.
func ParseQuality(value string) (Quality, error) {
	q := Quality(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := qualityPolicies[q]; !ok {
		return "", fmt.Errorf("unsupported quality %q (want one of %s)", value, joinNames(Qualities()))
	}
	return q, nil
}

// Policy returns the quality's lookup table entry.
func (q Quality) Policy() QualityPolicy {
	return qualityPolicies[q]
}

func (q Quality) String() string {
	return string(q)
}

func joinNames[T ~string](values []T) string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}
