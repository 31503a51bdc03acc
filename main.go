package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/communityshop/posbackend/lib/myhttpclient"
	"github.com/communityshop/posbackend/lib/mypublisher"
	"github.com/communityshop/posbackend/lib/mypubsub"
	"github.com/communityshop/posbackend/lib/myqueue"
	"github.com/communityshop/posbackend/lib/mystore"
	"github.com/communityshop/posbackend/lib/mytime"
	"github.com/communityshop/posbackend/lib/myuuid"
	"github.com/communityshop/posbackend/services/cart"
	"github.com/communityshop/posbackend/services/catalog"
	"github.com/communityshop/posbackend/services/checkout"
	"github.com/communityshop/posbackend/services/history"
	"github.com/communityshop/posbackend/services/payment"
)

const defaultCheckoutTimeout = 10 * time.Second

func main() {
	c := context.Background()

	router := mux.NewRouter()

	nower := mytime.RealNower{}
	uuider := myuuid.RealUUIDer{}
	httpClient := myhttpclient.New()

	pubsub, pubsubCleanup, err := mypubsub.New(c)
	if err != nil {
		log.Fatalf("Error creating pubsub: %s", err)
	}
	defer pubsubCleanup()

	queue, queueCleanup, err := myqueue.New(c)
	if err != nil {
		log.Fatalf("Error creating task queue: %s", err)
	}
	defer queueCleanup()

	publisher, publisherCleanup, err := mypublisher.New(c, pubsub, queue, nower)
	if err != nil {
		log.Fatalf("Error creating publisher: %s", err)
	}
	defer publisherCleanup()
	publisher.RegisterEndpoints(c, router)

	productStore, productStoreCleanup, err := mystore.New[catalog.Product](c)
	if err != nil {
		log.Fatalf("Error creating product store: %s", err)
	}
	defer productStoreCleanup()

	cartStore, cartStoreCleanup, err := mystore.New[cart.Cart](c)
	if err != nil {
		log.Fatalf("Error creating cart store: %s", err)
	}
	defer cartStoreCleanup()

	checkoutStore, checkoutStoreCleanup, err := mystore.New[checkout.CheckoutContext](c)
	if err != nil {
		log.Fatalf("Error creating checkout store: %s", err)
	}
	defer checkoutStoreCleanup()

	historyStore, historyStoreCleanup, err := mystore.New[history.SaleRecord](c)
	if err != nil {
		log.Fatalf("Error creating history store: %s", err)
	}
	defer historyStoreCleanup()

	historyService := history.NewWebService(historyStore, pubsub, nower)
	err = historyService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering history service: %s", err)
	}

	// catalog comes after history: its /api/products/{productUID} route must
	// not shadow /api/products/history
	fetcher := catalog.NewFetcher(os.Getenv("CATALOG_PROVIDER_URL"), httpClient)
	catalogService := catalog.NewWebService(productStore, fetcher, nower, uuider, publisher)
	err = catalogService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering catalog service: %s", err)
	}

	cartService := cart.NewWebService(cartStore, productStore, pubsub, nower, uuider)
	err = cartService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering cart service: %s", err)
	}

	payer := payment.NewPayer()
	payer.UseApiKey(os.Getenv("STRIPE_API_KEY"))

	sender := checkout.NewCheckoutSender(os.Getenv("CHECKOUT_SERVICE_URL"), httpClient)
	checkoutService := checkout.NewWebService(checkoutStore, cartStore, productStore,
		sender, payer, queue, publisher, nower, uuider, checkoutTimeout())
	err = checkoutService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering checkout service: %s", err)
	}

	startWebServerBlocking(router)
}

func checkoutTimeout() time.Duration {
	value := os.Getenv("CHECKOUT_TIMEOUT")
	if value == "" {
		return defaultCheckoutTimeout
	}

	timeout, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("Error parsing CHECKOUT_TIMEOUT %s: %s", value, err)
	}

	return timeout
}

func startWebServerBlocking(router *mux.Router) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting webserver on port %s (try http://localhost:%s)", port, port)
	err := http.ListenAndServe(fmt.Sprintf(":%s", port), router)
	if err != nil {
		log.Fatalf("Error starting webserver on port %s: %s", port, err)
	}
}
