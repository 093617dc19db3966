package cos

import (
	"fmt"
	"strings"

	"github.com/OneOfOne/xxhash"
	"github.com/teris-io/shortid"
)

// GenRunID returns a short, process-lifetime identifier stamped on every
// log-sink record so that multiple horus processes sharing a host's logs
// (or /dev/shm namespace) can be told apart at a glance.
func GenRunID() string { return "run-" + shortid.MustGenerate() }

// GenAttachID identifies one Hub/Link attach (one per-process, per-topic
// consumer cursor) for diagnostics and trace correlation.
func GenAttachID() string { return "attach-" + shortid.MustGenerate() }

// ValidTopicName rejects names that would not survive becoming part of a
// shared-memory filename: empty, containing '/', or containing '@'.
func ValidTopicName(name string) error {
	if name == "" {
		return fmt.Errorf("topic name must not be empty")
	}
	if strings.ContainsRune(name, '/') {
		return fmt.Errorf("topic name %q must not contain '/'", name)
	}
	if strings.ContainsRune(name, '@') {
		return fmt.Errorf("topic name %q must not contain '@'", name)
	}
	return nil
}

// HubRegionName and LinkRegionName implement the shared-memory filename
// convention from spec §6: distinct prefixes prevent accidental aliasing
// between broadcast (Hub) and SPSC (Link) backings of the same topic name.
func HubRegionName(topic string) string  { return "horus_topics_" + topic }
func LinkRegionName(topic string) string { return "horus_links_" + topic }

// TopicHash is a stable, non-cryptographic hash of a topic name, used only
// for diagnostics (e.g. correlating log lines across processes without
// printing the full name repeatedly).
func TopicHash(topic string) uint64 {
	h := xxhash.New64()
	_, _ = h.WriteString(topic)
	return h.Sum64()
}
