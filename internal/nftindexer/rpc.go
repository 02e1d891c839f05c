package nftindexer

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/vanshika/nftgateway/internal/domain"
	"github.com/vanshika/nftgateway/internal/upstream"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// rpc issues one JSON-RPC call and returns its result member.
func (c *Client) rpc(ctx context.Context, chain domain.Chain, method string, params []any) (gjson.Result, error) {
	endpoint, err := c.RPCURL(chain)
	if err != nil {
		return gjson.Result{}, err
	}
	resp, err := c.client.Call(ctx, c.provider, upstream.Request{
		Method: http.MethodPost,
		URL:    endpoint,
		Body:   rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params},
	})
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(resp.Body) {
		return gjson.Result{}, &upstream.Error{Kind: upstream.KindDecode, Provider: c.provider.Name, Message: method + " response is not valid JSON"}
	}
	if e := gjson.GetBytes(resp.Body, "error"); e.Exists() && e.Type != gjson.Null {
		return gjson.Result{}, &upstream.Error{Kind: upstream.KindDecode, Provider: c.provider.Name, Message: method + ": " + e.Get("message").String()}
	}
	return gjson.GetBytes(resp.Body, "result"), nil
}
