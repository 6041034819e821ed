package slowmo

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"splicer/internal/logging"
	"splicer/internal/services"
	"splicer/internal/timeline"
)

// IDPrefix marks producer ids generated by the cache.
const IDPrefix = "slowmotion"

// copiedProps are carried from the source producer onto the resampled one
// when set to a non-zero value.
var copiedProps = []string{
	"force_aspect_ratio",
	"force_fps",
	"threads",
	"force_progressive",
	"force_tff",
	"video_index",
	"force_colorspace",
	"set.force_full_luma",
}

// NormalizeSpeed maps speeds in (-1, 0] to normal speed.
func NormalizeSpeed(speed float64) float64 {
	if speed <= 0 && speed > -1 {
		return 1.0
	}
	return speed
}

// NeedsResample reports whether a clip at speed/strobe requires a
// resampled producer rather than its source.
func NeedsResample(speed float64, strobe int) bool {
	return speed != 1.0 || strobe > 1
}

// Supports reports whether service can be resampled.
func Supports(service string) bool {
	return service == timeline.ServiceAvformat || service == timeline.ServiceAvformatNoValidate
}

func formatSpeed(speed float64) string {
	return strconv.FormatFloat(speed, 'f', -1, 64)
}

// Key returns the cache key for resource played at speed with strobe.
func Key(resource string, speed float64, strobe int) string {
	key := resource + "?" + formatSpeed(speed)
	if strobe > 1 {
		key += "&strobe=" + strconv.Itoa(strobe)
	}
	return key
}

// ProducerID returns the id given to a resampled producer of sourceID.
func ProducerID(sourceID string, speed float64, strobe int) string {
	if before, _, ok := strings.Cut(sourceID, "_"); ok {
		sourceID = before
	}
	id := IDPrefix + ":" + sourceID + ":" + formatSpeed(speed)
	if strobe > 1 {
		id += ":" + strconv.Itoa(strobe)
	}
	return id
}

// SourceResource strips the speed query from a resampled producer resource.
func SourceResource(resource string) string {
	before, _, _ := strings.Cut(resource, "?")
	return before
}

// SourceID returns the source producer id embedded in a resampled id.
func SourceID(id string) string {
	parts := strings.Split(id, ":")
	if len(parts) < 2 || parts[0] != IDPrefix {
		return id
	}
	return parts[1]
}

// Speed returns the speed encoded in a resampled producer, or 1.
func Speed(p *timeline.Producer) float64 {
	if p == nil || p.Service != timeline.ServiceFramebuffer {
		return 1.0
	}
	_, query, ok := strings.Cut(p.Resource, "?")
	if !ok {
		return 1.0
	}
	speed, err := strconv.ParseFloat(query, 64)
	if err != nil {
		return 1.0
	}
	return speed
}

// Cache shares resampled producers keyed by (resource, speed, strobe).
// Cached producers are never modified after creation; a different speed
// always yields a different entry.
type Cache struct {
	mu        sync.Mutex
	producers map[string]*timeline.Producer
	order     []string
	limit     int
	logger    *slog.Logger
}

// NewCache returns a cache holding at most limit producers; zero means
// unbounded.
func NewCache(limit int, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Cache{
		producers: make(map[string]*timeline.Producer),
		limit:     limit,
		logger:    logging.NewComponentLogger(logger, "slowmo"),
	}
}

// Acquire returns the resampled producer for src at speed and strobe,
// creating it on first use. The second result reports creation.
func (c *Cache) Acquire(src *timeline.Producer, speed float64, strobe int) (*timeline.Producer, bool, error) {
	if !src.Valid() {
		return nil, false, services.Wrap(services.ErrProducer, "slowmo", "acquire", "invalid source producer", nil)
	}
	if speed == 0 {
		return nil, false, services.Wrap(services.ErrValidation, "slowmo", "acquire", "zero speed", nil)
	}
	key := Key(src.Resource, speed, strobe)

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.producers[key]; ok {
		c.touch(key)
		return p, false, nil
	}

	p := build(src, speed, strobe)
	c.insert(key, p)
	c.logger.Debug("slow motion producer created",
		logging.String("key", key),
		logging.String("producer_id", p.ID),
		logging.Int("length", p.Length),
	)
	return p, true, nil
}

func build(src *timeline.Producer, speed float64, strobe int) *timeline.Producer {
	resource := src.Resource + "?" + formatSpeed(speed)
	length := int(math.Ceil(float64(src.Length) / math.Abs(speed)))
	if length < 1 {
		length = 1
	}
	p := timeline.NewProducer(ProducerID(src.ID, speed, strobe), timeline.ServiceFramebuffer, resource, length)
	if strobe > 1 {
		p.Props.SetInt("strobe", strobe)
	}
	for _, name := range copiedProps {
		if v, ok := src.Props.Lookup(name); ok && v != "" && v != "0" {
			p.Props.Set(name, v)
		}
	}
	return p
}

// IsResampledID reports whether id was generated by the cache.
func IsResampledID(id string) bool {
	return strings.HasPrefix(id, IDPrefix+":")
}

// ProducerKey returns the cache key of a resampled producer. The speed is
// already part of its resource.
func ProducerKey(p *timeline.Producer) string {
	key := p.Resource
	if strobe := p.Props.Int("strobe"); strobe > 1 {
		key += "&strobe=" + strconv.Itoa(strobe)
	}
	return key
}

// Get returns the producer stored under key.
func (c *Cache) Get(key string) (*timeline.Producer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.producers[key]
	if ok {
		c.touch(key)
	}
	return p, ok
}

// Fill registers resampled producers found in a loaded project, skipping
// keys already cached. It returns the number added.
func (c *Cache) Fill(producers []*timeline.Producer) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	added := 0
	for _, p := range producers {
		if p == nil || !IsResampledID(p.ID) {
			continue
		}
		key := ProducerKey(p)
		if _, ok := c.producers[key]; ok {
			continue
		}
		c.insert(key, p)
		added++
	}
	return added
}

// Clear drops every cached producer.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.producers = make(map[string]*timeline.Producer)
	c.order = nil
}

// Len returns the number of cached producers.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.producers)
}

// Keys returns the cached keys from least to most recently used.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Cache) insert(key string, p *timeline.Producer) {
	c.producers[key] = p
	c.order = append(c.order, key)
	for c.limit > 0 && len(c.order) > c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.producers, oldest)
		c.logger.Debug("slow motion producer evicted", logging.String("key", oldest))
	}
}

func (c *Cache) touch(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, key)
			return
		}
	}
}
