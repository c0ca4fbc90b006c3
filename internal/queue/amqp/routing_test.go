package amqp

import (
	"errors"
	"testing"

	"github.com/kalmanolah/nite/internal/dispatch"
	"github.com/stretchr/testify/assert"
)

func TestResolveRouteGlobalSingleUsesTopicExchange(t *testing.T) {
	rt, err := resolveRoute("orders.Created", dispatch.GlobalSingleDemographic())
	assert.NoError(t, err)
	assert.Equal(t, topicExchangeSuffix, rt.exchangeSuffix)
	assert.Equal(t, "event.orders.Created", rt.routingKey)
}

func TestResolveRouteGlobalAllUsesFanoutExchange(t *testing.T) {
	rt, err := resolveRoute("orders.Created", dispatch.GlobalAllDemographic())
	assert.NoError(t, err)
	assert.Equal(t, fanoutExchangeSuffix, rt.exchangeSuffix)
	assert.Equal(t, "event.orders.Created", rt.routingKey)
}

func TestResolveRouteNodeAddressesPrivateQueue(t *testing.T) {
	rt, err := resolveRoute("orders.Created", dispatch.ToNode("worker-7"))
	assert.NoError(t, err)
	assert.Equal(t, topicExchangeSuffix, rt.exchangeSuffix)
	assert.Equal(t, "node.worker-7", rt.routingKey)
}

func TestResolveRouteLocalIsInvalid(t *testing.T) {
	_, err := resolveRoute("orders.Created", dispatch.LocalDemographic())
	assert.True(t, errors.Is(err, ErrInvalidDemographic))
}

func TestQueueNamingHelpers(t *testing.T) {
	assert.Equal(t, "node.alpha", nodeQueueName("alpha"))
	assert.Equal(t, "event.orders.Created", eventQueueName("orders.Created"))
}

func TestConfigValidateRequiresHostAndExchange(t *testing.T) {
	err := Config{}.Validate()
	assert.Error(t, err)

	err = Config{Host: "broker", ExchangeName: "nite"}.Validate()
	assert.NoError(t, err)
}

func TestConfigConnectTimeoutDefaultsToFiveSeconds(t *testing.T) {
	assert.Equal(t, defaultConnectTimeoutSeconds, int(Config{}.ConnectTimeout().Seconds()))
}
