package robots

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

const (
	wildcardAgent  = "*"
	fetchTimeout   = 10 * time.Second
	maxRobotsBytes = 512 * 1024
)

// Policy honours the rules of the wildcard group of one robots.txt.
type Policy struct {
	group         *robotstxt.Group
	originBlocked bool
}

var _ entities.RobotsPolicy = (*Policy)(nil)

// ParsePolicy builds a policy from a robots.txt response. Non-2xx responses allow everything.
func ParsePolicy(statusCode int, body []byte) (entities.RobotsPolicy, error) {
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return entities.AllowAllPolicy{}, nil
	}
	data, err := robotstxt.FromStatusAndBytes(statusCode, body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
	}
	return &Policy{
		group:         data.FindGroup(wildcardAgent),
		originBlocked: wildcardBlocksOrigin(body),
	}, nil
}

func (it *Policy) AllowsOrigin() bool {
	return !it.originBlocked
}

func (it *Policy) Allows(path string) bool {
	if it.originBlocked {
		return false
	}
	if it.group == nil {
		return true
	}
	if path == "" {
		path = "/"
	}
	return it.group.Test(path)
}

// wildcardBlocksOrigin reports whether a "User-agent: *" group carries "Disallow: /" or an
// empty "Disallow:". Consecutive User-agent lines share the rules that follow them.
func wildcardBlocksOrigin(body []byte) bool {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	inWildcard := false
	readingAgents := false
	for scanner.Scan() {
		line := scanner.Text()
		if hash := strings.IndexByte(line, '#'); hash >= 0 {
			line = line[:hash]
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			if !readingAgents {
				inWildcard = false
				readingAgents = true
			}
			if value == wildcardAgent {
				inWildcard = true
			}
		case "disallow":
			readingAgents = false
			if inWildcard && (value == "" || value == "/") {
				return true
			}
		default:
			readingAgents = false
		}
	}
	return false
}

// RobotsRepository fetches robots.txt over HTTP.
type RobotsRepository struct {
	client    *http.Client
	userAgent string
}

var _ repositories.RobotsRepository = (*RobotsRepository)(nil)

// NewRobotsRepository creates a new RobotsRepository.
func NewRobotsRepository(settings *entities.Settings) *RobotsRepository {
	return &RobotsRepository{
		client:    &http.Client{Timeout: fetchTimeout},
		userAgent: settings.Crawler.UserAgent,
	}
}

func (it *RobotsRepository) Fetch(ctx context.Context, origin string) entities.RobotsPolicy {
	robotsURL := strings.TrimRight(origin, "/") + "/robots.txt"
	policy, err := it.fetch(ctx, robotsURL)
	if err != nil {
		logger.Warnf("Could not read %s, crawling without restrictions: %v", robotsURL, err)
		return entities.AllowAllPolicy{}
	}
	return policy
}

func (it *RobotsRepository) fetch(ctx context.Context, robotsURL string) (entities.RobotsPolicy, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	if it.userAgent != "" {
		req.Header.Set("User-Agent", it.userAgent)
	}

	resp, err := it.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return ParsePolicy(resp.StatusCode, body)
}
