package seeder

import (
	"net/url"

	"shopsignals/internal/tracker"
)

const storeURL = "https://loja.example.com"

type product struct {
	id, name, category string
	price              float64
}

func (p product) ref() tracker.Product {
	price := p.price
	return tracker.Product{ID: p.id, Name: p.name, Price: &price}
}

var catalog = []product{
	{"vestido-floral", "Vestido Floral", "vestidos", 129.90},
	{"vestido-midi", "Vestido Midi Linho", "vestidos", 189.90},
	{"blusa-seda", "Blusa de Seda", "blusas", 89.90},
	{"blusa-cropped", "Blusa Cropped", "blusas", 49.90},
	{"calca-pantalona", "Calça Pantalona", "calcas", 149.90},
	{"saia-plissada", "Saia Plissada", "saias", 99.90},
	{"bolsa-palha", "Bolsa de Palha", "acessorios", 79.90},
	{"brinco-argola", "Brinco Argola", "acessorios", 29.90},
}

var landingPages = []string{"/", "/", "/", "/colecao/verao", "/promocoes", "/produto/vestido-floral"}

type trafficSource struct {
	referrer                 string
	source, medium, campaign string
}

func (t trafficSource) utm() url.Values {
	if t.source == "" {
		return nil
	}
	q := url.Values{}
	q.Set("utm_source", t.source)
	if t.medium != "" {
		q.Set("utm_medium", t.medium)
	}
	if t.campaign != "" {
		q.Set("utm_campaign", t.campaign)
	}
	return q
}

var sources = []trafficSource{
	{referrer: ""},
	{referrer: ""},
	{referrer: "https://www.instagram.com/", source: "instagram", medium: "social", campaign: "verao"},
	{referrer: "https://l.instagram.com/"},
	{referrer: "https://www.facebook.com/", source: "facebook", medium: "cpc", campaign: "remarketing"},
	{referrer: "https://www.google.com/"},
	{referrer: "https://www.google.com.br/", source: "google", medium: "cpc", campaign: "marca"},
	{referrer: "https://www.tiktok.com/"},
	{referrer: "https://wa.me/"},
	{referrer: "https://blog.example.org/looks-de-verao"},
}

var userAgents = []string{
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 14; SM-S911B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (Linux; Android 13; moto g84) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

var countries = []string{"BR", "BR", "BR", "BR", "PT", "US", "AR"}

var checkoutFields = []string{"name", "phone", "address", "city", "zip"}

type formError struct {
	kind, field, message string
}

var formErrors = []formError{
	{"validation", "phone", "Telefone inválido"},
	{"validation", "zip", "CEP não encontrado"},
	{"validation", "name", "Nome obrigatório"},
	{"submission", "", "Falha ao enviar pedido"},
}
