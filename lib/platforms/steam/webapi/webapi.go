package webapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"stlib/lib/webclient"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("platforms/steam/webapi")

const DefaultApiUrl = "https://api.steampowered.com"

const (
	report_webapi_server_time   = "webapi.server-time"
	report_webapi_player        = "webapi.player-summary"
	report_webapi_resolve       = "webapi.resolve-vanity-url"
	report_webapi_owned_games   = "webapi.owned-games"
	report_webapi_invalid_reply = "webapi.invalid-reply"
)

// ErrNotFound is returned when the api answers but has no data for the query.
var ErrNotFound = errors.New("webapi: not found")

type Options struct {
	// ApiUrl defaults to DefaultApiUrl.
	ApiUrl string
	// ApiKey is sent as the "key" parameter of every call when set.
	ApiKey string
}

// Client accesses the read endpoints of the Steam Web API.
type Client struct {
	*webclient.Client
	apiUrl string
	apiKey string
}

// NewKind returns the client kind for the given options, every session
// created through it shares them.
func NewKind(opts Options) webclient.Kind[*Client] {
	apiUrl := strings.TrimSuffix(opts.ApiUrl, "/")
	if apiUrl == "" {
		apiUrl = DefaultApiUrl
	}
	return webclient.NewKind("webapi.Client", func(base *webclient.Client) (*Client, error) {
		return &Client{
			Client: base,
			apiUrl: apiUrl,
			apiKey: opts.ApiKey,
		}, nil
	})
}

func (c *Client) ApiUrl() string {
	return c.apiUrl
}

func (c *Client) withKey(params url.Values) url.Values {
	if params == nil {
		params = url.Values{}
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	return params
}

func (c *Client) call(ctx context.Context, method string, params url.Values) (map[string]any, error) {
	return c.RequestJSON(ctx, fmt.Sprintf("%s/%s", c.apiUrl, method), webclient.RequestOptions{
		Params: c.withKey(params),
	})
}

func (c *Client) invalidReply(method string, reason string) error {
	err := fmt.Errorf("%w: %s: %s", webclient.ErrInvalidResponseShape, method, reason)
	c.Telemetry().ReportBroken(report_webapi_invalid_reply, err)
	return err
}

// ServerTime returns the unix time of the Steam servers.
func (c *Client) ServerTime(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "ServerTime")
	defer span.End()

	const method = "ISteamWebAPIUtil/GetServerInfo/v1"
	data, err := c.call(ctx, method, nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	servertime, ok := asInt64(data["servertime"])
	if !ok {
		err = c.invalidReply(method, "missing servertime")
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	c.Telemetry().ReportDebug(report_webapi_server_time, servertime)
	return servertime, nil
}

type player struct {
	ProfileUrl  string `json:"profileurl"`
	PersonaName string `json:"personaname"`
}

type playerSummaries struct {
	Response struct {
		Players []player `json:"players"`
	} `json:"response"`
}

func (c *Client) playerSummary(ctx context.Context, steamid uint64) (player, error) {
	params := c.withKey(url.Values{"steamids": {strconv.FormatUint(steamid, 10)}})

	summaries, err := webclient.RequestJSONAs[playerSummaries](
		ctx, c.Client,
		c.apiUrl+"/ISteamUser/GetPlayerSummaries/v2",
		webclient.RequestOptions{Params: params},
	)
	if err != nil {
		return player{}, err
	}
	if len(summaries.Response.Players) == 0 {
		return player{}, fmt.Errorf("%w: player %d", ErrNotFound, steamid)
	}
	return summaries.Response.Players[0], nil
}

// CustomProfileUrl returns the profile url of `steamid`.
func (c *Client) CustomProfileUrl(ctx context.Context, steamid uint64) (string, error) {
	ctx, span := tracer.Start(ctx, "CustomProfileUrl")
	defer span.End()
	span.SetAttributes(attribute.String("steamid", strconv.FormatUint(steamid, 10)))

	p, err := c.playerSummary(ctx, steamid)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	c.Telemetry().ReportDebug(report_webapi_player, "profile url", p.ProfileUrl, steamid)
	return p.ProfileUrl, nil
}

// PersonaName returns the display name of `steamid`.
func (c *Client) PersonaName(ctx context.Context, steamid uint64) (string, error) {
	ctx, span := tracer.Start(ctx, "PersonaName")
	defer span.End()
	span.SetAttributes(attribute.String("steamid", strconv.FormatUint(steamid, 10)))

	p, err := c.playerSummary(ctx, steamid)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	c.Telemetry().ReportDebug(report_webapi_player, "persona name", p.PersonaName, steamid)
	return p.PersonaName, nil
}

// vanityName accepts either a full profile url
// (https://steamcommunity.com/id/<name>/) or the bare custom name.
func vanityName(profileUrl string) string {
	if !strings.Contains(profileUrl, "/") {
		return profileUrl
	}
	parts := strings.Split(profileUrl, "/")
	if len(parts) > 4 {
		return parts[4]
	}
	return strings.Trim(parts[len(parts)-1], "/")
}

// ResolveVanityUrl returns the steamid64 behind a custom profile url.
func (c *Client) ResolveVanityUrl(ctx context.Context, profileUrl string) (uint64, error) {
	ctx, span := tracer.Start(ctx, "ResolveVanityUrl")
	defer span.End()

	name := vanityName(profileUrl)
	if name == "" {
		err := fmt.Errorf("%w: no custom name in %q", ErrNotFound, profileUrl)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	span.SetAttributes(attribute.String("vanityurl", name))

	const method = "ISteamUser/ResolveVanityURL/v1"
	data, err := c.call(ctx, method, url.Values{"vanityurl": {name}})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	response, _ := data["response"].(map[string]any)
	if success, _ := asInt64(response["success"]); success != 1 {
		err = fmt.Errorf("%w: vanity url %q", ErrNotFound, name)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	rawSteamid, _ := response["steamid"].(string)
	steamid, err := strconv.ParseUint(rawSteamid, 10, 64)
	if err != nil {
		err = c.invalidReply(method, fmt.Sprintf("steamid %q", rawSteamid))
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	c.Telemetry().ReportDebug(report_webapi_resolve, steamid, profileUrl)
	return steamid, nil
}

// Game is an entry of an account's library.
type Game struct {
	Name            string `json:"name"`
	AppId           int64  `json:"appid"`
	PlaytimeForever int64  `json:"playtime_forever"`
	ImgIconUrl      string `json:"img_icon_url"`
	HasDlc          bool   `json:"has_dlc"`
	HasMarket       bool   `json:"has_market"`
	HasWorkshop     bool   `json:"has_workshop"`
}

type ownedGames struct {
	Response struct {
		GameCount int64   `json:"game_count"`
		Games     *[]Game `json:"games"`
	} `json:"response"`
}

// OwnedGames lists the games of `steamid`, `appidsFilter` restricts the
// result to the given apps when it is not empty.
func (c *Client) OwnedGames(ctx context.Context, steamid uint64, appidsFilter []int64) ([]Game, error) {
	ctx, span := tracer.Start(ctx, "OwnedGames")
	defer span.End()
	span.SetAttributes(attribute.String("steamid", strconv.FormatUint(steamid, 10)))

	params := url.Values{
		"steamid":            {strconv.FormatUint(steamid, 10)},
		"include_appinfo":    {"1"},
		"skip_unvetted_apps": {"0"},
	}
	for i, appid := range appidsFilter {
		params.Set(fmt.Sprintf("appids_filter[%d]", i), strconv.FormatInt(appid, 10))
	}
	params = c.withKey(params)

	owned, err := webclient.RequestJSONAs[ownedGames](
		ctx, c.Client,
		c.apiUrl+"/IPlayerService/GetOwnedGames/v1",
		webclient.RequestOptions{Params: params},
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	// a private profile answers with an empty response object
	if owned.Response.Games == nil {
		err = fmt.Errorf("%w: owned games of %d", ErrNotFound, steamid)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	c.Telemetry().ReportDebug(report_webapi_owned_games, owned.Response.GameCount, steamid)
	return *owned.Response.Games, nil
}

func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}
