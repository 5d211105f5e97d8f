package discovery

// tabScript marks candidate tab elements with data-menu-tab and returns
// their labels. Candidates come from the registry's tab selectors and from
// groups of same-tag sibling buttons, links, or list items.
const tabScript = `(tabSelectors, maxTabs) => {
  const seen = new Set();
  const out = [];
  const visible = (el) => {
    const r = el.getBoundingClientRect();
    const s = getComputedStyle(el);
    return r.width > 0 && r.height > 0 && s.visibility !== 'hidden' && s.display !== 'none';
  };
  const add = (el, group) => {
    if (seen.has(el) || out.length >= maxTabs) return;
    const label = (el.innerText || el.textContent || '').trim().replace(/\s+/g, ' ');
    if (!label || label.length > 40 || !visible(el)) return;
    seen.add(el);
    const id = String(out.length);
    el.setAttribute('data-menu-tab', id);
    out.push({label: label, target: '[data-menu-tab="' + id + '"]', group: group});
  };
  for (const sel of tabSelectors) {
    try { document.querySelectorAll(sel).forEach((el) => add(el, -1)); } catch (e) {}
  }
  let group = 0;
  document.querySelectorAll('ul, ol, nav, div').forEach((parent) => {
    const kids = Array.from(parent.children).filter((c) => ['BUTTON', 'A', 'LI'].includes(c.tagName));
    if (kids.length < 3 || kids.length > 30 || kids.length !== parent.children.length) return;
    const tag = kids[0].tagName;
    if (!kids.every((k) => k.tagName === tag)) return;
    const navigates = (k) => {
      const a = k.tagName === 'A' ? k : k.querySelector('a');
      const h = a ? (a.getAttribute('href') || '') : '';
      return h !== '' && !h.startsWith('#') && !h.startsWith('javascript');
    };
    if (kids.some(navigates)) return;
    kids.forEach((k) => add(k, group));
    group++;
  });
  return out;
}`

// scrollContainerScript marks the element with the greatest scrollable
// overflow that covers at least half the viewport. The document itself is
// returned when nothing beats it.
const scrollContainerScript = `() => {
  const vw = window.innerWidth, vh = window.innerHeight;
  const doc = document.scrollingElement || document.documentElement;
  let best = null;
  let bestDelta = doc.scrollHeight - doc.clientHeight;
  document.querySelectorAll('body *').forEach((el) => {
    const delta = el.scrollHeight - el.clientHeight;
    if (delta <= bestDelta) return;
    const oy = getComputedStyle(el).overflowY;
    if (oy !== 'auto' && oy !== 'scroll') return;
    const r = el.getBoundingClientRect();
    const w = Math.max(0, Math.min(r.right, vw) - Math.max(r.left, 0));
    const h = Math.max(0, Math.min(r.bottom, vh) - Math.max(r.top, 0));
    if ((w * h) / (vw * vh) < 0.5) return;
    best = el;
    bestDelta = delta;
  });
  document.querySelectorAll('[data-menu-scroll]').forEach((el) => el.removeAttribute('data-menu-scroll'));
  if (!best) {
    return {selector: '', scroll_height: doc.scrollHeight, client_height: doc.clientHeight, viewport_height: vh};
  }
  best.setAttribute('data-menu-scroll', '1');
  return {selector: '[data-menu-scroll="1"]', scroll_height: best.scrollHeight, client_height: best.clientHeight, viewport_height: vh};
}`

// scrollScript scrolls the container (or the document) by dy pixels and
// reports whether it moved.
const scrollScript = `(selector, dy) => {
  const el = selector ? document.querySelector(selector) : (document.scrollingElement || document.documentElement);
  if (!el) return {moved: false, top: 0};
  const before = el.scrollTop;
  el.scrollTop = before + dy;
  return {moved: el.scrollTop > before, top: el.scrollTop};
}`

// scrollTopScript resets the container to the top.
const scrollTopScript = `(selector) => {
  const el = selector ? document.querySelector(selector) : (document.scrollingElement || document.documentElement);
  if (el) el.scrollTop = 0;
  return true;
}`
