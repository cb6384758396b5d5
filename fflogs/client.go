package fflogs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultAPIURL is the public FFLogs client API endpoint.
	DefaultAPIURL = "https://www.fflogs.com/api/v2/client"
	// DefaultTokenURL is the FFLogs OAuth token endpoint.
	DefaultTokenURL = "https://www.fflogs.com/oauth/token"
)

// Client talks to the FFLogs GraphQL API. Token refresh is transparent: the
// token source caches the app token and refetches it on expiry.
type Client struct {
	APIURL     string
	Tokens     oauth2.TokenSource
	HTTPClient *http.Client
}

// NewClient builds a Client with a client-credentials token source.
func NewClient(apiURL, tokenURL, clientID, clientSecret string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	return &Client{APIURL: apiURL, Tokens: cc.TokenSource(context.Background())}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// do posts a GraphQL query and unmarshals the data payload into out.
func (c *Client) do(ctx context.Context, query string, variables map[string]any, out any) error {
	tok, err := c.Tokens.Token()
	if err != nil {
		return &FetchError{Kind: KindAuth, Message: "token acquisition failed", Err: err}
	}

	body, err := json.Marshal(gqlRequest{Query: query, Variables: variables})
	if err != nil {
		return &FetchError{Kind: KindGraphQL, Message: "encode request", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL, bytes.NewReader(body))
	if err != nil {
		return &FetchError{Kind: KindTransport, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	resp, err := c.http().Do(req)
	if err != nil {
		return &FetchError{Kind: KindTransport, Message: "request failed", Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		kind := KindTransport
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			kind = KindAuth
		}
		return &FetchError{Kind: kind, Message: fmt.Sprintf("%s: %s", resp.Status, string(b))}
	}

	var env gqlEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &FetchError{Kind: KindTransport, Message: "decode response", Err: err}
	}
	if len(env.Errors) > 0 {
		msg := env.Errors[0].Message
		return &FetchError{Kind: classifyGraphQLError(msg), Message: msg}
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &FetchError{Kind: KindGraphQL, Message: "decode data", Err: err}
		}
	}
	return nil
}

// FetchReport returns the raw report payload for a report code.
func (c *Client) FetchReport(ctx context.Context, code string) (*RawReport, error) {
	var data struct {
		ReportData struct {
			Report *struct {
				Title     string `json:"title"`
				StartTime int64  `json:"startTime"`
				EndTime   int64  `json:"endTime"`
				Owner     *struct {
					Name string `json:"name"`
				} `json:"owner"`
				Guild *struct {
					Name string `json:"name"`
				} `json:"guild"`
				Fights []RawFight `json:"fights"`
			} `json:"report"`
		} `json:"reportData"`
	}
	if err := c.do(ctx, reportQuery, map[string]any{"reportCode": code}, &data); err != nil {
		return nil, err
	}
	rep := data.ReportData.Report
	if rep == nil {
		return nil, &FetchError{Kind: KindNotFound, Message: "report " + code + " missing or private"}
	}
	raw := &RawReport{
		Title:     rep.Title,
		StartTime: rep.StartTime,
		EndTime:   rep.EndTime,
		Fights:    rep.Fights,
	}
	if rep.Owner != nil {
		raw.Owner = rep.Owner.Name
	}
	if rep.Guild != nil {
		raw.Guild = rep.Guild.Name
	}
	return raw, nil
}

// FetchSpeedRankings returns the per-fight speed rankings for the given
// fights of a report. Fights absent from the result have no ranking data.
func (c *Client) FetchSpeedRankings(ctx context.Context, code string, fightIDs []int) ([]RankingRow, error) {
	var data struct {
		ReportData struct {
			Report *struct {
				// rankings is an untyped JSON blob in the schema
				Rankings struct {
					Data []struct {
						FightID   int `json:"fightID"`
						Encounter struct {
							ID int `json:"id"`
						} `json:"encounter"`
						Speed *struct {
							RankPercent *float64 `json:"rankPercent"`
						} `json:"speed"`
					} `json:"data"`
				} `json:"rankings"`
			} `json:"report"`
		} `json:"reportData"`
	}
	vars := map[string]any{"reportCode": code, "fightIDs": fightIDs}
	if err := c.do(ctx, speedRankingQuery, vars, &data); err != nil {
		return nil, err
	}
	rep := data.ReportData.Report
	if rep == nil {
		return nil, &FetchError{Kind: KindNotFound, Message: "report " + code + " missing or private"}
	}
	rows := make([]RankingRow, 0, len(rep.Rankings.Data))
	for _, r := range rep.Rankings.Data {
		row := RankingRow{FightID: r.FightID, EncounterID: r.Encounter.ID}
		if r.Speed != nil {
			row.SpeedPercent = r.Speed.RankPercent
		}
		rows = append(rows, row)
	}
	return rows, nil
}
