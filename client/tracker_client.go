package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pixperk/pixtracker/compact"
	"github.com/pixperk/pixtracker/meta"
)

// maxResponseSize bounds what we read from a tracker.
const maxResponseSize = 1 << 20

type TrackerClient struct {
	client *http.Client
	port   int
}

type AnnounceResponse struct {
	Interval   int
	Complete   int
	Incomplete int
	Peers      []compact.Peer
}

type ScrapeResponse struct {
	Complete   int
	Incomplete int
}

func NewTrackerClient(port int) *TrackerClient {
	return &TrackerClient{
		client: &http.Client{Timeout: 30 * time.Second},
		port:   port,
	}
}

func (tc *TrackerClient) WithHTTPClient(c *http.Client) *TrackerClient {
	tc.client = c
	return tc
}

// Announce reports to the tracker. A stopped event gets no body back, in
// which case the response is nil.
func (tc *TrackerClient) Announce(ctx context.Context, trackerURL string, infoHash []byte, left int64, event string) (*AnnounceResponse, error) {
	announceURL, err := tc.buildAnnounceURL(trackerURL, infoHash, left, event)
	if err != nil {
		return nil, fmt.Errorf("failed to build announce URL: %w", err)
	}

	body, err := tc.get(ctx, announceURL)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}

	dict, err := decodeDict(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tracker response: %w", err)
	}
	return parseAnnounceResponse(dict)
}

func (tc *TrackerClient) buildAnnounceURL(trackerURL string, infoHash []byte, left int64, event string) (string, error) {
	u, err := url.Parse(trackerURL)
	if err != nil {
		return "", err
	}

	if u.Path == "" || u.Path == "/" {
		u.Path = "/announce"
	}

	params := url.Values{}
	params.Set("info_hash", string(infoHash))
	params.Set("port", strconv.Itoa(tc.port))
	params.Set("left", strconv.FormatInt(left, 10))
	params.Set("compact", "1")

	if event != "" {
		params.Set("event", event)
	}

	u.RawQuery = params.Encode()
	return u.String(), nil
}

func (tc *TrackerClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach tracker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tracker returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("tracker response exceeds %d bytes", maxResponseSize)
	}
	return body, nil
}

func decodeDict(body []byte) (meta.BDict, error) {
	decoded, err := meta.NewDecoder(bytes.NewReader(body)).Decode()
	if err != nil {
		return nil, err
	}

	dict, ok := decoded.(meta.BDict)
	if !ok {
		return nil, fmt.Errorf("expected dictionary response, got %T", decoded)
	}

	if failureReason, exists := dict["failure reason"]; exists {
		if reasonStr, ok := failureReason.(meta.BString); ok {
			return nil, fmt.Errorf("tracker error: %s", string(reasonStr))
		}
	}
	return dict, nil
}

func intField(dict meta.BDict, key string) int {
	if n, ok := dict[key].(meta.BInt); ok {
		return int(n)
	}
	return 0
}

func parseAnnounceResponse(dict meta.BDict) (*AnnounceResponse, error) {
	response := &AnnounceResponse{
		Interval:   intField(dict, "interval"),
		Complete:   intField(dict, "complete"),
		Incomplete: intField(dict, "incomplete"),
	}

	peers, ok := dict["peers"].(meta.BString)
	if !ok {
		return nil, fmt.Errorf("expected compact peers, got %T", dict["peers"])
	}

	var err error
	response.Peers, err = compact.DecodePeers([]byte(peers))
	if err != nil {
		return nil, err
	}
	return response, nil
}

func (tc *TrackerClient) Scrape(ctx context.Context, trackerURL string, infoHash []byte) (*ScrapeResponse, error) {
	u, err := url.Parse(trackerURL)
	if err != nil {
		return nil, err
	}
	u.Path = "/scrape"
	params := url.Values{}
	params.Set("info_hash", string(infoHash))
	u.RawQuery = params.Encode()

	body, err := tc.get(ctx, u.String())
	if err != nil {
		return nil, err
	}

	dict, err := decodeDict(body)
	if err != nil {
		return nil, err
	}
	files, ok := dict["files"].(meta.BDict)
	if !ok {
		return nil, fmt.Errorf("missing files in scrape response")
	}
	stats, ok := files[string(infoHash)].(meta.BDict)
	if !ok {
		return nil, fmt.Errorf("no stats for %x", infoHash)
	}

	return &ScrapeResponse{
		Complete:   intField(stats, "complete"),
		Incomplete: intField(stats, "incomplete"),
	}, nil
}
