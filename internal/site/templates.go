package site

// browseTemplate is the html/template of the browse page. The element ids
// and classes are the contract browse.js relies on.
const browseTemplate = `<!DOCTYPE html>
<html lang="fr">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Le Postier · Parcourir</title>
  <link rel="stylesheet" href="/static/browse.css">
</head>
<body>
  <header class="top">
    <a class="brand" href="/parcourir/">Le Postier</a>
    <form id="researchForm" action="/parcourir/" method="get">
      <input type="text" name="keywords_input" id="keywords_input" value="{{.Query}}" placeholder="Rechercher une carte, un lieu, un numéro...">
      <button type="submit">Rechercher</button>
    </form>
    <div class="account">
      {{if .User}}
        <span class="member">{{.User.Username}}</span>
        <form action="/logout/" method="post"><button type="submit">Déconnexion</button></form>
      {{else}}
        <form class="login" action="/connexion/" method="post">
          <input type="hidden" name="next" value="/parcourir/{{if .Query}}?keywords_input={{.Query}}{{end}}">
          <input type="text" name="username" placeholder="Identifiant">
          <input type="password" name="password" placeholder="Mot de passe">
          <button type="submit">Connexion</button>
        </form>
      {{end}}
    </div>
  </header>

  {{if .Themes}}
  <nav class="themes">
    {{range .Themes}}<a class="theme{{if eq .Name $.Theme}} active{{end}}" href="/parcourir/?theme={{.Name}}" data-theme="{{.Name}}">{{.DisplayName}}</a>{{end}}
  </nav>
  {{end}}

  <section class="summary">
    <p>{{.DisplayedCount}} carte(s) affichée(s) sur {{.TotalCount}}{{if .Query}} pour « {{.Query}} »{{end}}</p>
    {{if .Slides}}<button type="button" id="cinema_start" data-ids="{{range $i, $p := .Slides}}{{if $i}},{{end}}{{$p.ID}}{{end}}">Mode cinéma</button>{{end}}
  </section>

  <main class="grid">
    {{range $i, $p := .Postcards}}
    <div class="cp_result{{if $p.IsRestricted}} restricted{{end}}" data-id="{{$p.ID}}" data-index="{{$i}}"
         data-title="{{$p.Title}}" data-number="{{$p.Number}}" data-front="{{$p.FrontImage}}" data-back="{{$p.BackImage}}">
      <img src="{{$p.VignetteURL}}" alt="{{$p.Title}}" loading="lazy">
      <div class="cp_details">
        <p class="cp_title">{{$p.Title}}</p>
        <p class="cp_number">N° {{$p.Number}}</p>
        <button type="button" class="like{{if liked $.Liked $p.ID}} liked{{end}}" data-id="{{$p.ID}}">♥ <span>{{$p.LikesCount}}</span></button>
      </div>
    </div>
    {{else}}
    <p class="empty">Aucune carte ne correspond à votre recherche.</p>
    {{end}}
  </main>

  <div id="fade" class="hidden"></div>

  <div id="popup_detail" class="popup hidden">
    <button type="button" class="popup_close" aria-label="Fermer">×</button>
    <button type="button" id="lat_arrow_0" class="arrow hidden" aria-label="Précédente">‹</button>
    <figure>
      <img id="img_popup_detail" src="" alt="">
      <figcaption>
        <p id="p_cp_popup_detail"></p>
        <p id="p_nb_cp_popup_detail"></p>
      </figcaption>
    </figure>
    <button type="button" id="lat_arrow_1" class="arrow hidden" aria-label="Suivante">›</button>
    <div class="actions">
      <button type="button" id="reverse_cp">Retourner</button>
      <button type="button" id="zoom_cp">Zoom</button>
    </div>
    <form id="suggest_form" class="suggest">
      <textarea name="description" placeholder="Une idée d'animation pour cette carte ?"></textarea>
      <button type="submit">Suggérer</button>
      <span class="suggest_status"></span>
    </form>
  </div>

  <div id="popup_zoom" class="popup hidden">
    <button type="button" class="popup_close" aria-label="Fermer">×</button>
    <div class="zoom_container">
      <img id="img_popup_zoom" src="" alt="">
    </div>
  </div>

  <div id="popup_non_membre" class="popup hidden">
    <button type="button" class="popup_close" aria-label="Fermer">×</button>
    <h2>Réservé aux membres</h2>
    <p>Le zoom haute définition de cette carte est réservé aux membres du Postier.</p>
    <p>Connectez-vous ou rejoignez l'association pour en profiter.</p>
  </div>

  <div id="slider" class="hidden">
    <button type="button" class="popup_close" aria-label="Fermer">×</button>
    {{range $i, $p := .Slides}}
    <div class="slide" data-id="{{$p.ID}}"><img src="{{$p.FrontImage}}" alt="{{$p.Title}}"><p>{{$p.Title}}</p></div>
    {{end}}
  </div>

  <script src="/static/browse.js"></script>
</body>
</html>`

// animatedTemplate is the html/template of the animated postcard gallery.
const animatedTemplate = `<!DOCTYPE html>
<html lang="fr">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Le Postier · Cartes animées</title>
  <link rel="stylesheet" href="/static/browse.css">
</head>
<body>
  <header class="top">
    <a class="brand" href="/parcourir/">Le Postier</a>
    <span class="member">{{if .User}}{{.User.Username}}{{end}}</span>
  </header>

  <section class="summary">
    <p>{{.TotalCount}} carte(s) animée(s)</p>
  </section>

  <main class="grid animated">
    {{range .Postcards}}
    <div class="cp_animated{{if .IsRestricted}} restricted{{end}}" data-id="{{.ID}}" data-number="{{.Number}}">
      {{if .Videos}}
        {{range .Videos}}<video src="{{.}}" muted loop playsinline preload="metadata"></video>{{end}}
      {{else}}
        <img src="{{.FrontImage}}" alt="{{.Title}}" loading="lazy">
      {{end}}
      <div class="cp_details">
        <p class="cp_title">{{.Title}}</p>
        <p class="cp_number">N° {{.Number}}</p>
        <button type="button" class="like{{if liked $.Liked .ID}} liked{{end}}" data-id="{{.ID}}">♥ <span>{{.LikesCount}}</span></button>
      </div>
    </div>
    {{else}}
    <p class="empty">Aucune carte animée pour le moment.</p>
    {{end}}
  </main>
</body>
</html>`

// browseCSS styles the browse page.
const browseCSS = `body { margin: 0; font-family: Georgia, serif; background: #f4efe3; color: #2b2b2b; }
.top { display: flex; align-items: center; gap: 1.5rem; padding: 1rem 2rem; background: #3d2f1d; color: #f4efe3; }
.brand { color: #f4efe3; font-size: 1.6rem; text-decoration: none; }
#researchForm { flex: 1; display: flex; gap: .5rem; }
#researchForm input { flex: 1; padding: .5rem; }
.account form { display: inline; }
.themes { display: flex; flex-wrap: wrap; gap: .5rem; padding: .75rem 2rem; }
.theme { padding: .3rem .8rem; border: 1px solid #8a6d3b; color: #3d2f1d; text-decoration: none; }
.theme.active { background: #8a6d3b; color: #fff; }
.summary { display: flex; align-items: center; justify-content: space-between; padding: 0 2rem; }
.grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(200px, 1fr)); gap: 1rem; padding: 1rem 2rem 3rem; }
.cp_result { position: relative; cursor: pointer; background: #fff; box-shadow: 0 1px 3px rgba(0,0,0,.15); }
.cp_result img { display: block; width: 100%; }
.cp_animated { position: relative; background: #000; }
.cp_animated video, .cp_animated img { display: block; width: 100%; }
.cp_result.restricted img { filter: sepia(.6); }
.cp_details { position: absolute; inset: auto 0 0 0; padding: .5rem; background: rgba(61,47,29,.85); color: #fff; opacity: 0; transition: opacity .2s; }
.cp_result.hover .cp_details { opacity: 1; }
.cp_details p { margin: 0; }
.like { background: none; border: none; color: #fff; cursor: pointer; }
.like.liked { color: #e25555; }
.hidden { display: none !important; }
#fade { position: fixed; inset: 0; background: rgba(0,0,0,.75); z-index: 10; }
.popup { position: fixed; top: 50%; left: 50%; transform: translate(-50%, -50%); z-index: 20; background: #fff; padding: 1.5rem; max-width: 90vw; max-height: 90vh; overflow: auto; }
.popup_close { position: absolute; top: .3rem; right: .6rem; border: none; background: none; font-size: 1.6rem; cursor: pointer; }
#popup_detail figure { margin: 0; text-align: center; }
#img_popup_detail { max-width: 70vw; max-height: 65vh; }
.arrow { position: absolute; top: 50%; font-size: 2.5rem; border: none; background: none; cursor: pointer; }
#lat_arrow_0 { left: -.2rem; }
#lat_arrow_1 { right: -.2rem; }
.actions { display: flex; gap: .5rem; justify-content: center; margin-top: .5rem; }
.suggest { display: flex; gap: .5rem; margin-top: 1rem; }
.suggest textarea { flex: 1; }
.zoom_container { overflow: hidden; cursor: zoom-in; }
.zoom_container.zoomed { cursor: zoom-out; }
#img_popup_zoom { display: block; max-width: 85vw; max-height: 85vh; transition: transform .2s; }
.zoom_container.zoomed #img_popup_zoom { transform: scale(2.5); }
#slider { position: fixed; inset: 5vh 5vw; z-index: 20; background: #000; opacity: 0; transition: opacity .4s; }
#slider.visible { opacity: 1; }
.slide { position: absolute; inset: 0; display: flex; flex-direction: column; align-items: center; justify-content: center; opacity: 0; transition: opacity 1s; color: #f4efe3; }
.slide.active { opacity: 1; }
.slide img { max-width: 90%; max-height: 85%; }
`

// browseJS drives the popups of the browse page. A single state object
// owns navigation and visibility; every fetch carries a per-popup request
// token so that late answers are dropped.
const browseJS = `(function () {
  'use strict';

  const POPUPS = ['fade', 'popup_detail', 'popup_zoom', 'popup_non_membre', 'slider'];
  const $ = (id) => document.getElementById(id);

  const state = {
    items: [],
    index: -1,
    side: 'front',
    zoomed: false,
    tokens: { popup_detail: 0, popup_zoom: 0 },
    cinema: null,
  };

  function show(id) { const el = $(id); if (el) el.classList.remove('hidden'); }
  function hide(id) { const el = $(id); if (el) el.classList.add('hidden'); }
  function visible(id) { const el = $(id); return !!el && !el.classList.contains('hidden'); }

  function issue(popup) { state.tokens[popup] += 1; return state.tokens[popup]; }
  function current(popup, token) { return state.tokens[popup] === token; }

  // Search controller and grid.
  const form = $('researchForm');
  if (form) {
    form.addEventListener('submit', (e) => {
      const input = form.querySelector('[name=keywords_input]');
      if (input && input.value.trim() === '') { e.preventDefault(); }
    });
  }

  const cards = Array.from(document.querySelectorAll('.cp_result'));
  state.items = cards.map((c) => ({
    id: Number(c.dataset.id),
    title: c.dataset.title,
    number: c.dataset.number,
    front: c.dataset.front,
    back: c.dataset.back,
  }));

  cards.forEach((card, i) => {
    card.addEventListener('mouseenter', () => card.classList.add('hover'));
    card.addEventListener('mouseleave', () => card.classList.remove('hover'));
    card.addEventListener('click', (e) => {
      if (e.target.closest('.like')) return;
      openFromGrid(i);
    });
  });

  document.querySelectorAll('.like').forEach((btn) => {
    btn.addEventListener('click', async (e) => {
      e.stopPropagation();
      try {
        const res = await fetch('/api/postcard/' + btn.dataset.id + '/like/', { method: 'POST' });
        if (!res.ok) throw new Error('HTTP ' + res.status);
        const data = await res.json();
        btn.classList.toggle('liked', data.liked);
        btn.querySelector('span').textContent = data.likes_count;
      } catch (err) {
        console.error('like failed', err);
      }
    });
  });

  // Detail popup.
  function renderDetail() {
    const item = state.items[state.index];
    if (!item) return;
    $('img_popup_detail').src = state.side === 'front' ? item.front : item.back;
    $('p_cp_popup_detail').textContent = item.title;
    $('p_nb_cp_popup_detail').textContent = 'N° ' + item.number;
    $('lat_arrow_0').classList.toggle('hidden', state.index <= 0);
    $('lat_arrow_1').classList.toggle('hidden', state.index >= state.items.length - 1);
  }

  function openFromGrid(index) {
    if (index < 0 || index >= state.items.length) return;
    state.index = index;
    openDetail(state.items[index].id);
  }

  async function openDetail(id) {
    const token = issue('popup_detail');
    try {
      const res = await fetch('/api/postcard/' + id + '/');
      if (!res.ok) throw new Error('HTTP ' + res.status);
      const data = await res.json();
      if (!current('popup_detail', token)) return;
      let i = state.items.findIndex((it) => it.id === data.id);
      const item = { id: data.id, title: data.title, number: data.number, front: data.front_image, back: data.back_image };
      if (i < 0) { state.items = [item]; i = 0; } else { state.items[i] = item; }
      state.index = i;
      state.side = 'front';
      show('fade');
      show('popup_detail');
      renderDetail();
    } catch (err) {
      console.error('detail fetch failed', err);
    }
  }

  function advance(delta) {
    const next = state.index + delta;
    if (next < 0 || next >= state.items.length) return;
    state.index = next;
    state.side = 'front';
    renderDetail();
  }

  function toggleSide() {
    state.side = state.side === 'front' ? 'back' : 'front';
    renderDetail();
  }

  // Zoom popup.
  async function openZoom(id) {
    const token = issue('popup_zoom');
    try {
      const res = await fetch('/api/postcard/' + id + '/zoom/');
      if (!res.ok) throw new Error('HTTP ' + res.status);
      const data = await res.json();
      if (!current('popup_zoom', token)) return;
      if (!data.can_view) {
        showMembershipPrompt();
        return;
      }
      state.zoomed = false;
      const box = document.querySelector('.zoom_container');
      box.classList.remove('zoomed');
      $('img_popup_zoom').style.transformOrigin = '50% 50%';
      $('img_popup_zoom').src = data.front_image;
      show('fade');
      show('popup_zoom');
    } catch (err) {
      console.error('zoom fetch failed', err);
    }
  }

  const zoomBox = document.querySelector('.zoom_container');
  if (zoomBox) {
    zoomBox.addEventListener('click', () => {
      state.zoomed = !state.zoomed;
      zoomBox.classList.toggle('zoomed', state.zoomed);
    });
    zoomBox.addEventListener('mousemove', (e) => {
      if (!state.zoomed) return;
      const r = zoomBox.getBoundingClientRect();
      const clamp = (v) => Math.min(100, Math.max(0, v));
      const x = clamp(((e.clientX - r.left) / r.width) * 100);
      const y = clamp(((e.clientY - r.top) / r.height) * 100);
      $('img_popup_zoom').style.transformOrigin = x + '% ' + y + '%';
    });
  }

  function showMembershipPrompt() {
    show('fade');
    show('popup_non_membre');
  }

  // Cinema mode. The server owns the timer; closing the socket stops it.
  function startCinema(ids) {
    stopCinema();
    const slides = Array.from(document.querySelectorAll('#slider .slide'));
    if (slides.length === 0) return;
    const activate = (i) => slides.forEach((s, j) => s.classList.toggle('active', i === j));
    activate(0);
    show('fade');
    show('slider');
    $('slider').classList.add('visible');

    const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
    const ws = new WebSocket(proto + location.host + '/ws/cinema?ids=' + encodeURIComponent(ids));
    ws.onmessage = (e) => {
      const msg = JSON.parse(e.data);
      if (msg.type === 'start' || msg.type === 'slide') activate(msg.index);
    };
    ws.onerror = (err) => console.error('cinema socket failed', err);
    state.cinema = ws;
  }

  function stopCinema() {
    if (state.cinema) {
      state.cinema.close();
      state.cinema = null;
    }
    const slider = $('slider');
    if (slider) slider.classList.remove('visible');
  }

  // Lifecycle manager: the single teardown path.
  function closeAll() {
    issue('popup_detail');
    issue('popup_zoom');
    stopCinema();
    POPUPS.forEach(hide);
    state.zoomed = false;
  }

  document.querySelectorAll('.popup_close').forEach((el) => el.addEventListener('click', closeAll));
  if ($('fade')) $('fade').addEventListener('click', closeAll);
  if ($('lat_arrow_0')) $('lat_arrow_0').addEventListener('click', () => advance(-1));
  if ($('lat_arrow_1')) $('lat_arrow_1').addEventListener('click', () => advance(1));
  if ($('reverse_cp')) $('reverse_cp').addEventListener('click', toggleSide);
  if ($('zoom_cp')) $('zoom_cp').addEventListener('click', () => {
    const item = state.items[state.index];
    if (item) openZoom(item.id);
  });
  if ($('cinema_start')) $('cinema_start').addEventListener('click', (e) => startCinema(e.currentTarget.dataset.ids));

  const suggest = $('suggest_form');
  if (suggest) {
    suggest.addEventListener('submit', async (e) => {
      e.preventDefault();
      const item = state.items[state.index];
      const status = suggest.querySelector('.suggest_status');
      if (!item) return;
      try {
        const res = await fetch('/api/postcard/' + item.id + '/suggest/', {
          method: 'POST',
          headers: { 'Content-Type': 'application/json' },
          body: JSON.stringify({ description: suggest.description.value }),
        });
        const data = await res.json();
        status.textContent = res.ok ? data.message : data.error;
        if (res.ok) suggest.reset();
      } catch (err) {
        console.error('suggestion failed', err);
      }
    });
  }

  document.addEventListener('keydown', (e) => {
    if (!visible('popup_detail')) return;
    switch (e.key) {
      case 'ArrowLeft': advance(-1); break;
      case 'ArrowRight': advance(1); break;
      case 'Escape': closeAll(); break;
    }
  });
})();
`
