package resolver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/leaseline/leaseline/internal/identity"
	"github.com/leaseline/leaseline/internal/model"
	"github.com/leaseline/leaseline/internal/phone"
	"github.com/leaseline/leaseline/pkg/vapi"
)

// Webhook headers. The routing header carries the dialed number directly;
// the id headers require an external lookup.
const (
	HeaderInboundNumber = "X-Inbound-Number"
	HeaderCallID        = "X-Vapi-Call-Id"
	HeaderChatID        = "X-Vapi-Chat-Id"
	HeaderPhoneNumber   = "X-Phone-Number"
)

// Pipeline resolves inbound webhook events to accounts. Strategies run in
// fixed priority order and short-circuit on the first account hit; an
// extracted phone number that owns no account logs the mismatch and the
// cascade continues.
type Pipeline struct {
	accounts *identity.Resolver
	client   vapi.Client
	cache    Cache
	group    singleflight.Group
}

// NewPipeline creates a resolution pipeline. client may be nil, which
// disables the id-based strategies; cache must not be nil.
func NewPipeline(accounts *identity.Resolver, client vapi.Client, cache Cache) *Pipeline {
	return &Pipeline{accounts: accounts, client: client, cache: cache}
}

type strategy struct {
	name    string
	extract func(ctx context.Context, headers http.Header, body Payload) string
}

// Resolve runs the strategy cascade over the event's headers and body.
// (nil, nil) means every strategy was exhausted without an account hit.
func (p *Pipeline) Resolve(ctx context.Context, headers http.Header, body Payload) (*model.AccountMatch, error) {
	strategies := []strategy{
		{"inbound-header", p.fromRoutingHeader},
		{"call-id-header", p.fromCallIDHeader},
		{"body-phone-number-id", p.fromBodyPhoneNumberID},
		{"chat-id-header", p.fromChatIDHeader},
		{"twilio-destination", p.fromTwilioDestination},
		{"message-phone", p.fromMessagePhoneFields},
		{"tool-call-arguments", p.fromToolCallArguments},
		{"body-call-id", p.fromBodyCallID},
		{"body-chat-id", p.fromBodyChatID},
		{"deep-phone-number-id", p.fromRemainingPhoneNumberID},
	}

	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw := s.extract(ctx, headers, body)
		if raw == "" {
			continue
		}

		phoneNumber := phone.Normalize(raw)
		match, err := p.accounts.ResolveAccount(ctx, phoneNumber)
		if err != nil {
			return nil, err
		}
		if match == nil {
			// A found number with no owning account is not conclusive.
			zap.L().Info("extracted phone owns no account, continuing cascade",
				zap.String("strategy", s.name),
				zap.String("phone", phoneNumber),
			)
			continue
		}

		match.Source = s.name
		zap.L().Debug("event resolved",
			zap.String("strategy", s.name),
			zap.String("account_id", match.Account.ID),
		)
		return match, nil
	}
	return nil, nil
}

// fromRoutingHeader reads the dialed number straight from the routing
// header. A present-but-blank value is a known templating artifact and is
// treated as absent.
func (p *Pipeline) fromRoutingHeader(_ context.Context, headers http.Header, _ Payload) string {
	return strings.TrimSpace(headers.Get(HeaderInboundNumber))
}

func (p *Pipeline) fromCallIDHeader(ctx context.Context, headers http.Header, _ Payload) string {
	id := strings.TrimSpace(headers.Get(HeaderCallID))
	if id == "" {
		return ""
	}
	return p.resolveCallID(ctx, id, false)
}

func (p *Pipeline) fromChatIDHeader(ctx context.Context, headers http.Header, _ Payload) string {
	id := strings.TrimSpace(headers.Get(HeaderChatID))
	if id == "" {
		return ""
	}
	return p.resolveCallID(ctx, id, true)
}

// fromBodyPhoneNumberID finds a phone-number id at the top level, inside
// "message", or inside "message.chat", in plain or object-with-id form.
func (p *Pipeline) fromBodyPhoneNumberID(ctx context.Context, _ http.Header, body Payload) string {
	message := body.Sub("message")
	for _, loc := range []Payload{body, message, message.Sub("chat")} {
		if id := numberIDAt(loc); id != "" {
			return p.resolvePhoneNumberID(ctx, id)
		}
	}
	return ""
}

// fromTwilioDestination reads the dialed number from the twilio sub-object.
// Inbound calls use "To", inbound SMS uses "to".
func (p *Pipeline) fromTwilioDestination(_ context.Context, _ http.Header, body Payload) string {
	return body.Sub("twilio").Str("To", "to")
}

// fromMessagePhoneFields reads phone-number-shaped fields from the message
// object and its nested chat and assistant objects.
func (p *Pipeline) fromMessagePhoneFields(ctx context.Context, _ http.Header, body Payload) string {
	message := body.Sub("message")
	for _, loc := range []Payload{message, message.Sub("chat"), message.Sub("assistant")} {
		for _, key := range []string{"phoneNumber", "phone_number", "customerPhoneNumber", "customer_phone_number"} {
			value, isID := loc.phoneField(key)
			if value == "" {
				continue
			}
			if isID {
				if number := p.resolvePhoneNumberID(ctx, value); number != "" {
					return number
				}
				continue
			}
			return value
		}
	}
	return ""
}

// fromToolCallArguments reads the destination number from the first tool
// invocation's arguments, then falls back to generic top-level body and
// header phone fields.
func (p *Pipeline) fromToolCallArguments(_ context.Context, headers http.Header, body Payload) string {
	message := body.Sub("message")
	calls := message.List("toolCalls")
	if calls == nil {
		calls = message.List("toolCallList")
	}
	if len(calls) > 0 {
		if tc, ok := calls[0].(map[string]any); ok {
			args := toolCallArguments(Payload(tc))
			if dest := args.Str("destinationNumber", "destination_number"); dest != "" {
				return dest
			}
		}
	}

	if number := body.Str("phoneNumber", "phone_number", "to", "To"); number != "" {
		return number
	}
	return strings.TrimSpace(headers.Get(HeaderPhoneNumber))
}

func (p *Pipeline) fromBodyCallID(ctx context.Context, _ http.Header, body Payload) string {
	message := body.Sub("message")
	id := body.Str("callId", "call_id")
	if id == "" {
		id = message.Str("callId", "call_id")
	}
	if id == "" {
		id = body.Sub("call").Str("id")
	}
	if id == "" {
		return ""
	}
	return p.resolveCallID(ctx, id, false)
}

func (p *Pipeline) fromBodyChatID(ctx context.Context, _ http.Header, body Payload) string {
	message := body.Sub("message")
	id := body.Str("chatId", "chat_id")
	if id == "" {
		id = message.Str("chatId", "chat_id")
	}
	if id == "" {
		id = body.Sub("chat").Str("id")
	}
	if id == "" {
		return ""
	}
	return p.resolveCallID(ctx, id, true)
}

// fromRemainingPhoneNumberID covers phone-number ids in body locations the
// earlier strategy does not reach: the call, chat, and assistant objects.
func (p *Pipeline) fromRemainingPhoneNumberID(ctx context.Context, _ http.Header, body Payload) string {
	for _, loc := range []Payload{body.Sub("call"), body.Sub("chat"), body.Sub("assistant")} {
		if id := numberIDAt(loc); id != "" {
			return p.resolvePhoneNumberID(ctx, id)
		}
	}
	return ""
}

// numberIDAt extracts a phone-number id from a payload location, accepting
// both plain string and object-with-id forms.
func numberIDAt(loc Payload) string {
	if loc == nil {
		return ""
	}
	if id := loc.Str("phoneNumberId", "phone_number_id"); id != "" {
		return id
	}
	for _, key := range []string{"phoneNumberId", "phone_number_id"} {
		if obj := loc.Sub(key); obj != nil {
			if id := obj.Str("id"); id != "" {
				return id
			}
		}
	}
	return ""
}

// toolCallArguments unwraps a tool call's arguments, JSON-decoding them
// when the provider ships them as an encoded string.
func toolCallArguments(tc Payload) Payload {
	fn := tc.Sub("function")
	if fn == nil {
		fn = tc
	}
	switch v := fn["arguments"].(type) {
	case map[string]any:
		return Payload(v)
	case string:
		var decoded map[string]any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			return nil
		}
		return Payload(decoded)
	}
	return nil
}

// resolveCallID resolves a call or chat id to a phone number, cache first.
// External failures are soft: the strategy yields nothing and the cascade
// moves on. Concurrent lookups of the same id are collapsed.
func (p *Pipeline) resolveCallID(ctx context.Context, id string, chat bool) string {
	if cached, ok := p.cache.CallPhone(id); ok {
		return cached
	}
	if p.client == nil {
		return ""
	}

	key := "call:" + id
	if chat {
		key = "chat:" + id
	}
	v, _, _ := p.group.Do(key, func() (any, error) {
		if cached, ok := p.cache.CallPhone(id); ok {
			return cached, nil
		}

		var info *vapi.CallInfo
		var err error
		if chat {
			info, err = p.client.GetChat(ctx, id)
		} else {
			info, err = p.client.GetCall(ctx, id)
		}
		if err != nil {
			zap.L().Debug("telephony id lookup failed",
				zap.String("id", id),
				zap.Bool("chat", chat),
				zap.Error(err),
			)
			return "", nil
		}

		if info.PhoneNumber != "" {
			p.cache.SetCallPhone(id, info.PhoneNumber)
			return info.PhoneNumber, nil
		}
		if info.PhoneNumberID != "" {
			number := p.resolvePhoneNumberID(ctx, info.PhoneNumberID)
			if number != "" {
				p.cache.SetCallPhone(id, number)
			}
			return number, nil
		}
		return "", nil
	})

	s, _ := v.(string)
	return s
}

// resolvePhoneNumberID resolves a phone-number id to its number, cache
// first, populating both directions of the binding on success.
func (p *Pipeline) resolvePhoneNumberID(ctx context.Context, id string) string {
	if cached, ok := p.cache.PhoneByNumberID(id); ok {
		return cached
	}
	if p.client == nil {
		return ""
	}

	v, _, _ := p.group.Do("phone-id:"+id, func() (any, error) {
		if cached, ok := p.cache.PhoneByNumberID(id); ok {
			return cached, nil
		}

		number, err := p.client.GetPhoneNumber(ctx, id)
		if err != nil {
			zap.L().Debug("phone-number id lookup failed",
				zap.String("id", id),
				zap.Error(err),
			)
			return "", nil
		}
		if number != "" {
			p.cache.SetPhoneByNumberID(id, number)
			p.cache.SetNumberIDByPhone(number, id)
		}
		return number, nil
	})

	s, _ := v.(string)
	return s
}
