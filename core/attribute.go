package core

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	AttributeKeyChainID        = attribute.Key("chain_id")
	AttributeKeyClientID       = attribute.Key("client_id")
	AttributeKeyConnectionID   = attribute.Key("connection_id")
	AttributeKeyChannelID      = attribute.Key("channel_id")
	AttributeKeyPortID         = attribute.Key("port_id")
	AttributeKeyDirection      = attribute.Key("direction")
	AttributeKeyPath           = attribute.Key("path")
	AttributeKeyRevisionNumber = attribute.Key("revision_number")
	AttributeKeyRevisionHeight = attribute.Key("revision_height")
	AttributeKeyPackage        = attribute.Key("package")
)

// AttributeGroup prefixes the given key to all attributes.
//
// For example, if the key is "foo" and the key of an attribute is "bar", the new key will be "foo.bar".
func AttributeGroup(key string, attributes ...attribute.KeyValue) []attribute.KeyValue {
	newAttrs := make([]attribute.KeyValue, 0, len(attributes))
	for _, attr := range attributes {
		newAttrs = append(newAttrs, attribute.KeyValue{
			Key:   attribute.Key(key + "." + string(attr.Key)),
			Value: attr.Value,
		})
	}
	return newAttrs
}

func WithChainAttributes(chainID string) trace.SpanStartOption {
	return trace.WithAttributes(
		AttributeKeyChainID.String(chainID),
	)
}

func WithClientAttributes(c Chain) trace.SpanStartOption {
	return trace.WithAttributes(
		AttributeKeyChainID.String(c.ChainID()),
		AttributeKeyClientID.String(c.Path().ClientID),
	)
}

func WithChannelAttributes(c Chain) trace.SpanStartOption {
	return trace.WithAttributes(
		AttributeKeyChainID.String(c.ChainID()),
		AttributeKeyPortID.String(c.Path().PortID),
		AttributeKeyChannelID.String(c.Path().ChannelID),
	)
}

func WithChannelPairAttributes(src, dst Chain) trace.SpanStartOption {
	var attrs []attribute.KeyValue
	attrs = append(attrs, AttributeGroup("src",
		AttributeKeyChainID.String(src.ChainID()),
		AttributeKeyPortID.String(src.Path().PortID),
		AttributeKeyChannelID.String(src.Path().ChannelID),
	)...)
	attrs = append(attrs, AttributeGroup("dst",
		AttributeKeyChainID.String(dst.ChainID()),
		AttributeKeyPortID.String(dst.Path().PortID),
		AttributeKeyChannelID.String(dst.Path().ChannelID),
	)...)
	return trace.WithAttributes(attrs...)
}
